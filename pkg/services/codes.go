package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	inviteCodeLength   = 8

	taskCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	taskCodeLength   = 6
	taskCodePrefix   = "task-"

	// maxCodeAttempts bounds regeneration after a collision.
	maxCodeAttempts = 5
)

func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random code: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}

func generateInviteCode() (string, error) {
	return randomString(inviteCodeAlphabet, inviteCodeLength)
}

func generateTaskCode() (string, error) {
	s, err := randomString(taskCodeAlphabet, taskCodeLength)
	if err != nil {
		return "", err
	}
	return taskCodePrefix + s, nil
}
