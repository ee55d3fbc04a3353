package model

import (
	"fmt"
	"io"
	"sort"

	"github.com/blang/semver/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/osmosyslabs/osmosys"
	"golang.org/x/exp/maps"
)

// snapshot is the serialized specification state of a block: variable
// values, the fixed set and every scaling factor. It is a wire codec for
// moving a specification between blocks of the same shape, not a storage
// format.
type snapshot struct {
	Version string             `cbor:"version"`
	Values  map[string]float64 `cbor:"values"`
	Fixed   []string           `cbor:"fixed"`
	Scales  map[string]float64 `cbor:"scales"`
}

// WriteTo encodes the block's current specification state: every variable
// value, the fixed set and every scaling factor.
func (b *Block) WriteTo(w io.Writer) (int64, error) {
	snap := snapshot{
		Version: osmosys.Version.String(),
		Values:  make(map[string]float64, len(b.variables)),
		Scales:  make(map[string]float64, len(b.variables)),
	}
	for _, v := range b.variables {
		snap.Values[v.Name] = v.Value
		if b.fixed.Test(uint(v.ID)) {
			snap.Fixed = append(snap.Fixed, v.Name)
		}
		snap.Scales[v.Name] = v.Scale
	}
	sort.Strings(snap.Fixed)

	data, err := cbor.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ReadFrom decodes a specification state and applies it to the block.
// Every variable named in the snapshot must already be declared; the
// block's fixed set and scaling factors are replaced wholesale, so a
// variable without a snapshot scale reverts to 1.
func (b *Block) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), err
	}
	var snap snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return int64(len(data)), fmt.Errorf("decode snapshot: %w", err)
	}
	if err := checkVersion(snap.Version); err != nil {
		return int64(len(data)), err
	}

	names := maps.Keys(snap.Values)
	sort.Strings(names)
	for _, name := range names {
		if err := b.SetValue(name, snap.Values[name]); err != nil {
			return int64(len(data)), err
		}
	}
	for i := range b.variables {
		b.variables[i].Scale = 1
	}
	for name, scale := range snap.Scales {
		if err := b.SetScale(name, scale); err != nil {
			return int64(len(data)), err
		}
	}

	b.fixed.ClearAll()
	for _, name := range snap.Fixed {
		id, err := b.id(name)
		if err != nil {
			return int64(len(data)), err
		}
		b.fixed.Set(uint(id))
	}
	return int64(len(data)), nil
}

// checkVersion rejects snapshots from a different major version (or a
// different minor version while the module is pre-1.0).
func checkVersion(s string) error {
	v, err := semver.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrSnapshotVersion, s)
	}
	cur := osmosys.Version
	if v.Major != cur.Major || (cur.Major == 0 && v.Minor != cur.Minor) {
		return fmt.Errorf("%w: snapshot %s, module %s", ErrSnapshotVersion, v, cur)
	}
	return nil
}
