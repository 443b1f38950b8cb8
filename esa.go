package babelauth

import (
	"sort"
	"time"

	"github.com/msgboxio/babelauth/algo"
	"github.com/msgboxio/babelauth/keychain"
	"github.com/msgboxio/log"
)

// CSA is a Configured Security Association, attached to an interface by
// configuration. Its lifetime is the interface's lifetime.
type CSA struct {
	KeychainName string
	HashAlgo     algo.Algo
}

// ESA is an Effective Security Association, fully resolved from a CSA at
// a specific time for a specific operation (send or accept). Owned
// exclusively by the operation that derived it.
type ESA struct {
	SortMajor, SortMinor int
	HashAlgo             algo.Algo
	KeyID                uint16
	KeyBytes             []byte
}

func sameAssociation(a, b ESA) bool {
	if a.HashAlgo != b.HashAlgo || a.KeyID != b.KeyID {
		return false
	}
	if len(a.KeyBytes) != len(b.KeyBytes) {
		return false
	}
	for i := range a.KeyBytes {
		if a.KeyBytes[i] != b.KeyBytes[i] {
			return false
		}
	}
	return true
}

// buildESAList derives the ordered list of ESAs for one operation from an
// interface's CSAs, per spec §4.1.
//
// csa_counter walks every configured CSA in order; key_counter walks every
// key the filter returns for that CSA, including ones later dropped as
// full duplicates. That gap in sort_major values is intended (spec.md §9
// open question): it keeps an ESA's sort_major aligned with its key's
// position in the CSA's own filtered key list, not with its position
// among non-duplicate ESAs.
func buildESAList(csas []CSA, now time.Time, lookup KeychainLookup, filter KeyFilter) []ESA {
	var esas []ESA
	for csaCounter, csa := range csas {
		kc, ok := lookup(csa.KeychainName)
		if !ok {
			log.V(1).Infof("esa: keychain %q configured for %s does not exist", csa.KeychainName, csa.HashAlgo)
			continue
		}
		keys := filter(kc, now)
		log.V(2).Infof("esa: keychain %q has %d usable key(s) for %s", csa.KeychainName, len(keys), csa.HashAlgo)
		for keyCounter, key := range keys {
			candidate := ESA{
				SortMajor: keyCounter,
				SortMinor: csaCounter,
				HashAlgo:  csa.HashAlgo,
				KeyID:     uint16(key.Index),
				KeyBytes:  key.Secret,
			}
			if esaExists(esas, candidate) {
				log.V(2).Infof("esa: KeyID %d is a full duplicate of another key", candidate.KeyID)
				continue
			}
			esas = append(esas, candidate)
		}
	}
	sort.SliceStable(esas, func(i, j int) bool {
		if esas[i].SortMajor != esas[j].SortMajor {
			return esas[i].SortMajor < esas[j].SortMajor
		}
		return esas[i].SortMinor < esas[j].SortMinor
	})
	return esas
}

func esaExists(esas []ESA, candidate ESA) bool {
	for _, e := range esas {
		if sameAssociation(e, candidate) {
			return true
		}
	}
	return false
}
