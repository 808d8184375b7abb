package types

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// BlobID identifies the exact text a diagnostic was computed against. It is
// the git blob hash of the file, so it equals `git hash-object <file>` and a
// stored run can be matched against a later checkout.
type BlobID [sha1.Size]byte

// ComputeBlobID hashes content as a git blob: SHA-1("blob <len>\x00" + content).
func ComputeBlobID(content []byte) BlobID {
	h := sha1.New()
	h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00"))
	h.Write(content)

	var id BlobID
	h.Sum(id[:0])
	return id
}

// Hex returns the 40-character lowercase hex form.
func (id BlobID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id BlobID) String() string {
	return id.Hex()
}

// IsZero reports whether the ID was never computed, as for a file that could
// not be read.
func (id BlobID) IsZero() bool {
	return id == BlobID{}
}

// Matches reports whether content is the text id was computed from.
func (id BlobID) Matches(content []byte) bool {
	return ComputeBlobID(content) == id
}

// ParseBlobID parses the hex form written by Hex.
func ParseBlobID(s string) (BlobID, error) {
	var id BlobID
	if len(s) != 2*len(id) {
		return BlobID{}, fmt.Errorf("invalid blob ID length: expected %d, got %d", 2*len(id), len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return BlobID{}, fmt.Errorf("invalid blob ID %q: %w", s, err)
	}
	return id, nil
}

func (id BlobID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

func (id *BlobID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("blob ID must be a string: %w", err)
	}
	parsed, err := ParseBlobID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
