// Package models defines the item types that flow through the book pipeline.
package models
