// Package storage persists the visitor identity across runs.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// contactIDFile returns the path of the stored visitor identifier for one
// inbox. Identifiers are namespaced by inbox so switching inboxes starts a
// fresh anonymous session.
func contactIDFile(homeDir, inboxID string) string {
	return filepath.Join(homeDir, "contact-"+inboxID)
}

// LoadContactID loads the stored visitor identifier for the inbox.
//
// A missing file is not an error; it returns an empty identifier so boot
// falls back to creating a new contact.
func LoadContactID(homeDir, inboxID string) (string, error) {
	data, err := os.ReadFile(contactIDFile(homeDir, inboxID))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read contact id: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveContactID stores the visitor identifier for the inbox, overwriting
// any previous value.
func SaveContactID(homeDir, inboxID, contactID string) error {
	if contactID == "" {
		return fmt.Errorf("empty contact id")
	}
	path := contactIDFile(homeDir, inboxID)
	if err := os.WriteFile(path, []byte(contactID), 0600); err != nil {
		return fmt.Errorf("failed to write contact id: %w", err)
	}
	return nil
}
