package kv

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap(OpGet, "k", nil) != nil {
		t.Fatal("nil error should stay nil")
	}

	err := Wrap(OpSet, KeyTransactions, io.ErrUnexpectedEOF)
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %T", err)
	}
	if se.Op != OpSet || se.Key != KeyTransactions {
		t.Fatalf("unexpected fields: %+v", se)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("expected cause to unwrap")
	}
	if !strings.Contains(err.Error(), `storage set "@transactions"`) {
		t.Fatalf("unexpected message: %s", err)
	}

	if again := Wrap(OpGet, "other", err); again != err {
		t.Fatal("expected existing StorageError to be returned as is")
	}
}
