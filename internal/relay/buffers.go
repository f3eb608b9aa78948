// internal/relay/buffers.go
package relay

// BlockSize is the fixed transfer unit moved from receive to transmit
const BlockSize = 128

// bufferCount is the number of blocks in the arena
const bufferCount = 2

// none marks an unused buffer index
const none = -1

// Block is one transfer unit
type Block [BlockSize]byte

// Role is what a block is currently used for
type Role uint8

const (
	RoleIdle Role = iota
	RoleFilling
	RoleDraining
)

func (r Role) String() string {
	switch r {
	case RoleFilling:
		return "filling"
	case RoleDraining:
		return "draining"
	default:
		return "idle"
	}
}

// MarshalText encodes the role by name
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// arena holds the two blocks and their roles. It is only touched while the
// relay critical section is held.
type arena struct {
	blocks [bufferCount]Block
	roles  [bufferCount]Role
}

// other returns the index of the block that is not i
func other(i int) int {
	return i ^ 1
}

// verify reports a role conflict: more than one filling or draining block
func (a *arena) verify() error {
	filling, draining := 0, 0
	for _, r := range a.roles {
		switch r {
		case RoleFilling:
			filling++
		case RoleDraining:
			draining++
		}
	}
	if filling > 1 || draining > 1 {
		return ErrRoleConflict
	}
	return nil
}

func (a *arena) reset() {
	for i := range a.roles {
		a.roles[i] = RoleIdle
	}
}
