// Package idgen assigns projectIds of the form
// "<clientId>-RED-<clientId>-NNNN", NNNN a per-client monotonic sequence.
package idgen

import "fmt"

// SequenceStore hands out the next per-client sequence number. Implemented
// by internal/engine over internal/repository's ProjectRepository.NextSequence.
type SequenceStore interface {
	Next(clientID string) (int, error)
}

// Generate assigns the next projectId for clientID.
func Generate(clientID string, seq SequenceStore) (string, error) {
	n, err := seq.Next(clientID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-RED-%s-%04d", clientID, clientID, n), nil
}
