package handlers

import (
	"net/http"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/vedran77/huddle/internal/domain"
)

func TestChatMessages(t *testing.T) {
	env := newTestEnv(t, nil)
	token, me := env.signUp(t, "ana@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/chat/messages", token, map[string]string{"text": "   "})
	assert.Equal(t, rec.Code, http.StatusBadRequest)

	for _, text := range []string{"one", "two", "three"} {
		rec = env.do(t, http.MethodPost, "/api/v1/chat/messages", token, map[string]string{"text": text})
		assert.Equal(t, rec.Code, http.StatusCreated)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/chat/messages?limit=2", token, nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	var msgs []domain.ChatMessage
	decode(t, rec, &msgs)
	assert.Equal(t, len(msgs), 2)
	assert.Equal(t, msgs[0].Text, "two")
	assert.Equal(t, msgs[1].Text, "three")
	assert.Equal(t, msgs[1].SenderID, me.ID)
	assert.Equal(t, msgs[1].SenderName, "ana")

	rec = env.do(t, http.MethodGet, "/api/v1/chat/messages?limit=zero", token, nil)
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}
