package memories

import "sync"

// WorkingMemory holds the short-term conversational window. Oldest messages
// fall off once the estimated token budget is exceeded.
type WorkingMemory struct {
	mu        sync.Mutex
	messages  []WorkingMessage
	maxTokens int
}

type WorkingMessage struct {
	Role    string
	Content string
}

const defaultWorkingTokens = 32000

func NewWorkingMemory(maxTokens int) *WorkingMemory {
	if maxTokens <= 0 {
		maxTokens = defaultWorkingTokens
	}
	return &WorkingMemory{maxTokens: maxTokens}
}

func (m *WorkingMemory) Add(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, WorkingMessage{Role: role, Content: content})
	m.trim()
}

// Messages returns up to n most recent messages, or all of them for n <= 0.
func (m *WorkingMemory) Messages(n int) []WorkingMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := m.messages
	if n > 0 && len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	out := make([]WorkingMessage, len(messages))
	copy(out, messages)
	return out
}

func (m *WorkingMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// trim drops oldest messages while the rough token estimate (4 chars per
// token) is over budget. Caller holds the lock.
func (m *WorkingMemory) trim() {
	budget := m.maxTokens * 4
	total := 0
	for _, msg := range m.messages {
		total += len(msg.Content)
	}
	for len(m.messages) > 1 && total > budget {
		total -= len(m.messages[0].Content)
		m.messages = m.messages[1:]
	}
}
