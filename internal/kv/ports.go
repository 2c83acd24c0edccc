package kv

import (
	"context"
	"fmt"
)

// Keys under which the app keeps its blobs.
const (
	KeyTransactions    = "@transactions"
	KeyCategories      = "@categories"
	KeyAccounts        = "@accounts"
	KeyPassword        = "@app_password"
	KeyDefaultCurrency = "@default_currency"
)

// Store is the persistence port: an asynchronous string-keyed blob store.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Op names used in StorageError.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpRemove = "remove"
	OpDecode = "decode"
	OpEncode = "encode"
)

// StorageError reports a failed adapter call.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Wrap returns err as a *StorageError unless it is nil or already one.
func Wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*StorageError); ok {
		return se
	}
	return &StorageError{Op: op, Key: key, Err: err}
}
