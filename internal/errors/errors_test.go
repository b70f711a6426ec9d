package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{&ErrNotAuthorized{UserID: "u1"}, KindNotAuthorized},
		{&ErrReauthorizationRequired{UserID: "u1"}, KindReauthorizationRequired},
		{&ErrQuotaExceeded{Operation: "videos.list"}, KindQuotaExceeded},
		{&ErrPermissionDenied{Operation: "comments.delete"}, KindPermissionDenied},
		{&ErrResourceNotFound{Operation: "videos.list", Resource: "v1"}, KindResourceNotFound},
		{&ErrUpstream{Operation: "videos.list", StatusCode: 500}, KindUpstreamError},
		{&ErrConfiguration{Setting: "encryption_key", Reason: "missing"}, KindConfigurationError},
		{&ErrDecryption{Reason: "tampered"}, KindDecryptionError},
		{&ErrInvalidSignature{}, KindInvalidSignature},
		{&ErrExpired{}, KindExpired},
		{&ErrMalformed{}, KindMalformed},
		{&ErrAuthorizationFailed{Stage: "exchange", Err: errors.New("boom")}, KindAuthorizationFailed},
	}

	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.kind {
			t.Fatalf("KindOf(%T) = %s, want %s", tc.err, got, tc.kind)
		}
	}
}

func TestKindOfUnknownError(t *testing.T) {
	if got := KindOf(errors.New("some network thing")); got != KindUpstreamError {
		t.Fatalf("unclassified error mapped to %s, want %s", got, KindUpstreamError)
	}
}

func TestKindOfWrappedError(t *testing.T) {
	inner := &ErrQuotaExceeded{Operation: "commentThreads.list"}
	wrapped := fmt.Errorf("calling provider: %w", inner)
	if got := KindOf(wrapped); got != KindQuotaExceeded {
		t.Fatalf("wrapped error mapped to %s, want %s", got, KindQuotaExceeded)
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(&ErrConfiguration{Setting: "k", Reason: "r"}) {
		t.Fatal("configuration errors must be fatal")
	}
	if !IsFatal(&ErrDecryption{Reason: "tampered"}) {
		t.Fatal("decryption errors must be fatal")
	}
	if IsFatal(&ErrQuotaExceeded{Operation: "op"}) {
		t.Fatal("quota errors must not be fatal")
	}
	if IsFatal(&ErrUpstream{Operation: "op"}) {
		t.Fatal("upstream errors must not be fatal")
	}
}

func TestUnwrap(t *testing.T) {
	base := errors.New("bad yaml")
	parse := &ErrConfigParse{Err: base}
	if !strings.Contains(parse.Error(), "failed to parse YAML") {
		t.Fatalf("unexpected parse message: %s", parse.Error())
	}
	if !errors.Is(parse, base) {
		t.Fatal("expected unwrap to base error")
	}

	up := &ErrUpstream{Operation: "videos.update", Err: base}
	if !errors.Is(up, base) {
		t.Fatal("expected upstream unwrap to base error")
	}

	authz := &ErrAuthorizationFailed{Stage: "identity", Err: base}
	if !errors.Is(authz, base) {
		t.Fatal("expected authorization unwrap to base error")
	}
}

func TestInfrastructureMessages(t *testing.T) {
	base := errors.New("db")

	open := &ErrDatabaseOpen{Path: "/tmp/app.db", Err: base}
	if !strings.Contains(open.Error(), "failed to open database") {
		t.Fatalf("unexpected open message: %s", open.Error())
	}

	migration := &ErrDatabaseMigration{Version: 2, Err: base}
	if !strings.Contains(migration.Error(), "database migration 2 failed") {
		t.Fatalf("unexpected migration message: %s", migration.Error())
	}

	query := &ErrDatabaseQuery{Operation: "upsert credential", Err: base}
	if !errors.Is(query, base) {
		t.Fatal("expected unwrap to base error")
	}

	miss := &ErrNotFound{Entity: "credential", Key: "u1"}
	if !strings.Contains(miss.Error(), "credential not found: u1") {
		t.Fatalf("unexpected not found message: %s", miss.Error())
	}
}
