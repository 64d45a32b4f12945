// Package identity derives the synthetic object ids that review records
// attach to. The id for a (head, view, path) triple is the git blob id of a
// canonical key payload, so it is stable across machines without consulting
// the object database.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/remarklabs/remark/internal/core/git"
)

const keyVersion = "remark-file-key:v1"

// Key identifies one file's review record within one diff window at one HEAD.
type Key struct {
	Head string
	View git.View
	Path string
}

// Payload returns the canonical key payload hashed into the synthetic id.
// Base views include the resolved base commit so the same path reviewed
// against different bases gets distinct records.
func (k Key) Payload() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, keyVersion...)
	buf = append(buf, '\n')
	buf = append(buf, "head:"...)
	buf = append(buf, k.Head...)
	buf = append(buf, '\n')
	buf = append(buf, "kind:"...)
	buf = append(buf, k.View.Kind.String()...)
	buf = append(buf, '\n')
	if k.View.Kind == git.ViewBase {
		buf = append(buf, "base:"...)
		buf = append(buf, k.View.Base...)
		buf = append(buf, '\n')
	}
	buf = append(buf, "path:"...)
	buf = append(buf, k.Path...)
	buf = append(buf, '\n')
	return buf
}

// ObjectID returns the synthetic blob id for the key. This matches what
// `git hash-object --stdin` would produce for Payload, so the blob can be
// materialized later without changing the id.
func (k Key) ObjectID() string {
	payload := k.Payload()
	h := sha1.New()
	fmt.Fprintf(h, "blob %s\x00", strconv.Itoa(len(payload)))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
