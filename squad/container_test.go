package squad

import (
	"testing"

	"github.com/arcbridge/pipebridge/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddExistsAndCapacity(t *testing.T) {
	c := New()
	p := wire.PlayerInfo{AccountName: "a.1"}
	_, status := c.Add(p)
	require.Equal(t, StatusSuccess, status)

	_, status = c.Add(p)
	assert.Equal(t, StatusExistsError, status)

	for i := 1; i < Capacity; i++ {
		_, status := c.Add(wire.PlayerInfo{AccountName: itoa(i)})
		require.Equal(t, StatusSuccess, status)
	}
	_, status = c.Add(wire.PlayerInfo{AccountName: "overflow"})
	assert.Equal(t, StatusCapacityError, status)
}

func itoa(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return "acc." + string(b)
}

func TestUpdateValidatorMismatchAndEqual(t *testing.T) {
	c := New()
	p := wire.PlayerInfo{AccountName: "a.1", Profession: 1}
	entry, status := c.Add(p)
	require.Equal(t, StatusSuccess, status)

	_, status = c.Update(wire.PlayerInfoEntry{Player: p, Validator: entry.Validator + 1})
	assert.Equal(t, StatusValidatorMismatch, status)

	updated, status := c.Update(entry)
	assert.Equal(t, StatusEqual, status)
	assert.Equal(t, entry.Validator+1, updated.Validator)

	updated.Player.Profession = 2
	updated, status = c.Update(updated)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, uint32(2), updated.Player.Profession)
}

func TestUpdateNotFound(t *testing.T) {
	c := New()
	_, status := c.Update(wire.PlayerInfoEntry{Player: wire.PlayerInfo{AccountName: "missing"}, Validator: 1})
	assert.Equal(t, StatusNotFound, status)
}

func TestRemoveAndClear(t *testing.T) {
	c := New()
	p := wire.PlayerInfo{AccountName: "a.1"}
	c.Add(p)

	_, ok := c.Remove("a.1")
	assert.True(t, ok)
	_, ok = c.Find("a.1")
	assert.False(t, ok)

	c.Add(p)
	c.Clear()
	assert.Empty(t, c.Snapshot())
}

func TestSnapshotDistinctAccountNames(t *testing.T) {
	c := New()
	c.Add(wire.PlayerInfo{AccountName: "a"})
	c.Add(wire.PlayerInfo{AccountName: "b"})
	c.Remove("a")
	c.Add(wire.PlayerInfo{AccountName: "c"})

	seen := map[string]bool{}
	for _, e := range c.Snapshot() {
		assert.False(t, seen[e.Player.AccountName], "duplicate accountName in snapshot")
		seen[e.Player.AccountName] = true
	}
}

func TestToSerialStartPadding(t *testing.T) {
	c := New()
	c.Add(wire.PlayerInfo{AccountName: "a"})
	buf := c.ToSerial(3)
	for _, b := range buf[:3] {
		assert.Equal(t, byte(0), b)
	}
	d := wire.NewDecoder(buf[3:])
	assert.EqualValues(t, 1, d.ReadUint64())
}

func TestFindIf(t *testing.T) {
	c := New()
	c.Add(wire.PlayerInfo{AccountName: "a", Self: true})
	c.Add(wire.PlayerInfo{AccountName: "b"})

	entry, ok := c.FindIf(func(p wire.PlayerInfo) bool { return p.Self })
	require.True(t, ok)
	assert.Equal(t, "a", entry.Player.AccountName)
}
