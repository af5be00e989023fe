package statebus

import "github.com/rise-and-shine/statebus/msgstore"

// SetStoreOpener swaps the function Config-driven stores are opened with.
func SetStoreOpener(fn func(msgstore.Config) (msgstore.Store, error)) (restore func()) {
	prev := openStore
	openStore = fn
	return func() { openStore = prev }
}
