//go:build !cgo

package storage

import "errors"

func openKuzu(string) (Adapter, error) {
	return nil, errors.New("kuzu: backend requires a cgo build")
}
