// Package syscall implements the kernel side of the trap interface the
// library OS uses to obtain and release physical pages.
//
// A call loads the syscall number into EAX and its arguments into EBX, ECX,
// ... and raises interrupt Vector. The handler writes the Result into EAX
// and any return values into the following registers:
//
//	allocpg: EBX=count        -> EAX=result, EBX=address
//	freepg:  EBX=addr ECX=count -> EAX=result
//
// Every argument comes from a less privileged caller and is validated by the
// page allocator before use.
package syscall

import "fmt"

// Vector is the interrupt number reserved for system calls.
const Vector = 0x66

// Number identifies a system call.
type Number uint32

const (
	Null    Number = 0
	Getfb   Number = 1 // framebuffer query; served by the graphics driver, not here
	AllocPg Number = 2
	FreePg  Number = 3

	tableSize = 4
)

func (n Number) String() string {
	switch n {
	case Null:
		return "null"
	case Getfb:
		return "getfb"
	case AllocPg:
		return "allocpg"
	case FreePg:
		return "freepg"
	default:
		return fmt.Sprintf("syscall(%d)", uint32(n))
	}
}

// Result is the status a handler leaves in EAX.
type Result uint32

const (
	Success Result = 0
	Error   Result = 0xFFFFFFFF // -1
)

// Regs is the general-purpose register file exchanged across the trap.
type Regs struct {
	EAX uint32
	EBX uint32
	ECX uint32
	EDX uint32
	ESI uint32
	EDI uint32
}

// Result returns EAX interpreted as a Result.
func (r *Regs) Result() Result { return Result(r.EAX) }

func (r *Regs) setResult(res Result) { r.EAX = uint32(res) }
