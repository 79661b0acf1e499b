package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"bookpipe/internal/models"
	"bookpipe/internal/store"
)

// maxLineBytes bounds a single JSON Lines record.
const maxLineBytes = 4 << 20

// Feed errors.
var (
	ErrInvalidFeed = errors.New("invalid item feed")
	ErrNullItem    = errors.New("item is null")
)

// Run reads items from r and processes them in order. r holds either JSON
// Lines (one object per line) or a single JSON array of objects. Dropped
// and undecodable items are counted and skipped; the first fatal error
// stops the run.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (Summary, error) {
	br := bufio.NewReader(r)

	first, err := firstByte(br)
	if errors.Is(err, io.EOF) {
		return p.Summary(), nil
	}

	if err != nil {
		return p.Summary(), fmt.Errorf("failed to read feed: %w", err)
	}

	if first == '[' {
		err = p.runArray(ctx, br)
	} else {
		err = p.runLines(ctx, br)
	}

	return p.Summary(), err
}

func (p *Pipeline) runLines(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var raw models.RawRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			p.markInvalid("line "+strconv.Itoa(lineNo), err)
			continue
		}

		if raw == nil {
			p.markInvalid("line "+strconv.Itoa(lineNo), ErrNullItem)
			continue
		}

		if err := p.handle(ctx, raw); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}

	return nil
}

func (p *Pipeline) runArray(ctx context.Context, r io.Reader) error {
	dec := json.NewDecoder(r)

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}

	for index := 0; dec.More(); index++ {
		var raw models.RawRecord

		err := dec.Decode(&raw)

		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			p.markInvalid("index "+strconv.Itoa(index), err)
			continue
		}

		if err != nil {
			return fmt.Errorf("%w: element %d: %v", ErrInvalidFeed, index, err)
		}

		if raw == nil {
			p.markInvalid("index "+strconv.Itoa(index), ErrNullItem)
			continue
		}

		if err := p.handle(ctx, raw); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}

	return nil
}

// handle processes one item, swallowing drops.
func (p *Pipeline) handle(ctx context.Context, raw models.RawRecord) error {
	_, err := p.Process(ctx, raw)
	if err == nil || errors.Is(err, store.ErrDropped) {
		return nil
	}

	return err
}

func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}

		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}

		if err := br.UnreadByte(); err != nil {
			return 0, err
		}

		return b, nil
	}
}
