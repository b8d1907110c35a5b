package assistant

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrStatus wraps any non-2xx reply.
	ErrStatus = errors.New("assistant returned non-success status")
	// ErrMalformedPayload means a 2xx reply lacked the expected field or was not JSON.
	ErrMalformedPayload = errors.New("malformed assistant payload")
	// ErrTooLarge is returned by ReadDocument when a file exceeds the size limit.
	ErrTooLarge = errors.New("document exceeds size limit")
)

// AskRequest is the JSON body of POST /chat.
type AskRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

// AskReply carries the assistant's answer.
type AskReply struct {
	Response string
}

// IngestReply carries the human-readable status line for an upload.
type IngestReply struct {
	Status string
}

// Document is a file selected for ingestion.
type Document struct {
	Name string // base filename shown to the user and sent as the part filename
	Path string
	Data []byte
}

// wire payloads use pointers so a missing field is distinguishable from "".
type askPayload struct {
	Response *string `json:"response"`
}

type statusPayload struct {
	Status *string `json:"status"`
}

// ReadDocument loads path into memory. maxBytes <= 0 disables the limit.
func ReadDocument(path string, maxBytes int64) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to stat document: %w", err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%s is a directory", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return Document{}, fmt.Errorf("%s is %d bytes: %w", filepath.Base(path), info.Size(), ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read document: %w", err)
	}
	return Document{Name: filepath.Base(path), Path: path, Data: data}, nil
}
