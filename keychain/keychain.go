// Package keychain is the reference implementation of the keychain
// collaborator spec.md puts out of scope for the authentication core: key
// storage and key-validity-window arithmetic. The core only ever calls
// Store.Lookup and the two pure filter functions below.
package keychain

import (
	"time"

	"github.com/msgboxio/log"
)

// Key is a single keyed secret with independent validity windows for
// sending and accepting traffic, mirroring RFC 4822-style keychains.
// A zero time.Time for a bound means "unbounded" on that side.
type Key struct {
	Index  uint32
	Secret []byte

	NotBeforeSend, NotAfterSend     time.Time
	NotBeforeAccept, NotAfterAccept time.Time
}

func inWindow(now, notBefore, notAfter time.Time) bool {
	if !notBefore.IsZero() && now.Before(notBefore) {
		return false
	}
	if !notAfter.IsZero() && now.After(notAfter) {
		return false
	}
	return true
}

// Keychain is an ordered, named list of keys. Order is significant: it is
// the order the ESA builder's key_counter walks when deriving sort order.
type Keychain struct {
	Name string
	Keys []Key
}

// ValidForSend returns, in configuration order, the keys of kc valid for
// sending at now.
func ValidForSend(kc *Keychain, now time.Time) []Key {
	var out []Key
	for _, k := range kc.Keys {
		if inWindow(now, k.NotBeforeSend, k.NotAfterSend) {
			out = append(out, k)
		}
	}
	return out
}

// ValidForAccept returns, in configuration order, the keys of kc valid for
// accepting at now.
func ValidForAccept(kc *Keychain, now time.Time) []Key {
	var out []Key
	for _, k := range kc.Keys {
		if inWindow(now, k.NotBeforeAccept, k.NotAfterAccept) {
			out = append(out, k)
		}
	}
	return out
}

// Store holds a set of named keychains, as an operator would configure
// them. It is the concrete backing for keychain_lookup(name).
type Store struct {
	chains map[string]*Keychain
}

func NewStore() *Store {
	return &Store{chains: make(map[string]*Keychain)}
}

// Add registers kc under its own name, replacing any existing keychain of
// the same name.
func (s *Store) Add(kc *Keychain) {
	s.chains[kc.Name] = kc
}

// Lookup returns the named keychain, or ok == false if it is not configured.
func (s *Store) Lookup(name string) (kc *Keychain, ok bool) {
	kc, ok = s.chains[name]
	if !ok {
		log.V(2).Infof("keychain: %q is not configured", name)
	}
	return
}
