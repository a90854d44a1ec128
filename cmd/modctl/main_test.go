package main

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tullo/modchat/internal/auth"
	"github.com/tullo/modchat/internal/repository"
)

func TestMintTicket(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	token := uuid.NewString()

	ticket, err := mintTicket(svc, token)
	require.NoError(t, err)

	got, ok := auth.NewManager(svc).Verify(ticket)
	assert.True(t, ok)
	assert.Equal(t, token, got)

	_, err = mintTicket(svc, "admin")
	assert.Error(t, err)
}

func TestDocumentKey(t *testing.T) {
	key, err := documentKey("words")
	require.NoError(t, err)
	assert.Equal(t, repository.KeyBannedWords, key)

	key, err = documentKey("history")
	require.NoError(t, err)
	assert.Equal(t, repository.KeyMessages, key)

	_, err = documentKey("users")
	assert.Error(t, err)
}

func TestPrintTicket(t *testing.T) {
	var buf bytes.Buffer
	printTicket(&buf, "tok", "tick")
	assert.Equal(t, "token:  tok\nticket: tick\n", buf.String())
}
