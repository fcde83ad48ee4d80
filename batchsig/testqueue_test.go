package batchsig

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"
)

func testLogger() logger.Logger {
	logger.New("NOOP")
	return logger.Sugar
}

// newTestMessages makes one message per recipient. The payload names the
// batch and position so that every message is distinct.
func newTestMessages(batch int, recipients ...string) []*BasicMessage {
	msgs := make([]*BasicMessage, len(recipients))
	for i, r := range recipients {
		msgs[i] = NewBasicMessage(r, "author", []byte(fmt.Sprintf("batch %d message %d to %s", batch, i, r)))
	}
	return msgs
}

func addAll(q interface{ Add(Message) }, msgs []*BasicMessage) {
	for _, m := range msgs {
		q.Add(m)
	}
}

func flushAll(t *testing.T, q interface {
	Add(Message)
	Flush(context.Context) error
}, msgs []*BasicMessage) {
	t.Helper()
	addAll(q, msgs)
	require.NoError(t, q.Flush(context.Background()))
}

func requireValidity(t *testing.T, msgs []*BasicMessage, want bool) {
	t.Helper()
	for i, m := range msgs {
		valid, checked := m.Validity()
		require.True(t, checked, "message %d was not checked", i)
		require.Equal(t, want, valid, "message %d", i)
	}
}

func resetValidity(msgs ...[]*BasicMessage) {
	for _, batch := range msgs {
		for _, m := range batch {
			m.ResetValidity()
		}
	}
}

var errSignerUnavailable = errors.New("signer unavailable")

// failingSigner fails its first failures Sign calls.
type failingSigner struct {
	*DigestPrimitive
	failures int
}

func (s *failingSigner) Sign(data []byte) (Signature, error) {
	if s.failures > 0 {
		s.failures--
		return Signature{}, errSignerUnavailable
	}
	return s.DigestPrimitive.Sign(data)
}
