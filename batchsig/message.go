package batchsig

import "sync"

// Message is the unit a queue signs or verifies. Queues report back through
// SignatureResult and SignatureValidity, possibly from another goroutine.
type Message interface {
	Data() []byte
	// Recipient is the grouping key used for splicing.
	Recipient() string
	Author() string
	SignatureBlob() *SignatureBlob
	SignatureResult(blob *SignatureBlob)
	SignatureValidity(valid bool)
}

// BasicMessage is a Message that records what the queues report.
type BasicMessage struct {
	recipient string
	author    string
	data      []byte

	mu      sync.Mutex
	blob    *SignatureBlob
	valid   bool
	checked bool
}

func NewBasicMessage(recipient, author string, data []byte) *BasicMessage {
	return &BasicMessage{recipient: recipient, author: author, data: data}
}

func (m *BasicMessage) Data() []byte      { return m.data }
func (m *BasicMessage) Recipient() string { return m.recipient }
func (m *BasicMessage) Author() string    { return m.author }

// SetData replaces the payload. It exists so tests can corrupt a message
// after it has been signed.
func (m *BasicMessage) SetData(data []byte) { m.data = data }

func (m *BasicMessage) SignatureBlob() *SignatureBlob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blob
}

func (m *BasicMessage) SignatureResult(blob *SignatureBlob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = blob
}

func (m *BasicMessage) SignatureValidity(valid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = valid
	m.checked = true
}

// Validity returns the last reported result, and whether one was reported.
func (m *BasicMessage) Validity() (valid bool, checked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid, m.checked
}

// ResetValidity clears the reported result so the message can be verified
// again.
func (m *BasicMessage) ResetValidity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid, m.checked = false, false
}
