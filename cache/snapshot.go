package cache

import (
	"encoding/binary"
	"errors"
)

// Snapshot is the denormalized projection of a session that a request needs:
// principal identity plus the display fields handlers read most. It is not
// authoritative; absence from the cache only means the durable store must be
// consulted.
type Snapshot struct {
	PrincipalKind uint8
	PrincipalID   string
	Email         string
	Name          string
	Role          string
	PlanTier      string
	Online        bool

	// SessionCreatedAt is the unix creation instant of the backing session.
	SessionCreatedAt int64
}

const (
	snapshotVersion = 1
	// 1 version + 1 kind + 1 flags + 6 length bytes + 8 created-at
	snapshotFixedLen = 17
	maxFieldLen      = 255
)

// ErrSnapshotCorrupt is returned for blobs that fail structural decoding. The
// store treats a corrupt entry as a miss after deleting it.
var ErrSnapshotCorrupt = errors.New("session snapshot corrupt")

// Encode serializes a snapshot into the compact length-prefixed binary layout.
// The layout is append-only: later versions add fields, never reinterpret old
// ones.
func Encode(snap *Snapshot) ([]byte, error) {
	fields := [...]string{snap.PrincipalID, snap.Email, snap.Name, snap.Role, snap.PlanTier}

	size := snapshotFixedLen - len(fields) - 1
	for _, f := range fields {
		if len(f) > maxFieldLen {
			return nil, errors.New("snapshot field exceeds 255 bytes")
		}
		size += 1 + len(f)
	}

	buf := make([]byte, 0, size+1)
	buf = append(buf, snapshotVersion, snap.PrincipalKind)

	var flags byte
	if snap.Online {
		flags |= 1
	}
	buf = append(buf, flags)

	for _, f := range fields {
		buf = append(buf, byte(len(f)))
		buf = append(buf, f...)
	}

	buf = binary.BigEndian.AppendUint64(buf, uint64(snap.SessionCreatedAt))
	return buf, nil
}

// Decode parses a snapshot blob. Any structural problem (truncation, unknown
// version, trailing garbage on v1) yields [ErrSnapshotCorrupt].
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < snapshotFixedLen {
		return nil, ErrSnapshotCorrupt
	}
	if data[0] != snapshotVersion {
		return nil, ErrSnapshotCorrupt
	}

	snap := &Snapshot{
		PrincipalKind: data[1],
		Online:        data[2]&1 != 0,
	}

	idx := 3
	fields := [...]*string{&snap.PrincipalID, &snap.Email, &snap.Name, &snap.Role, &snap.PlanTier}
	for _, dst := range fields {
		if idx >= len(data) {
			return nil, ErrSnapshotCorrupt
		}
		n := int(data[idx])
		idx++
		if idx+n > len(data) {
			return nil, ErrSnapshotCorrupt
		}
		*dst = string(data[idx : idx+n])
		idx += n
	}

	if len(data) != idx+8 {
		return nil, ErrSnapshotCorrupt
	}
	snap.SessionCreatedAt = int64(binary.BigEndian.Uint64(data[idx:]))

	if snap.PrincipalID == "" {
		return nil, ErrSnapshotCorrupt
	}
	return snap, nil
}
