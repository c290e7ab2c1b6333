package pass

import (
	"github.com/roach88/passman/internal/ir"
)

// ExternalCallbacks is the lifecycle of a pass implemented outside this
// package. userData is the opaque value handed to NewExternalPass, or the
// value returned by Clone for cloned instances. Every callback is optional.
type ExternalCallbacks struct {
	// Construct is called once when the adapter is created. It is not
	// called for clones.
	Construct func(userData any)

	// Destruct is called exactly once per instance, clones included.
	Destruct func(userData any)

	// Initialize is called once before the first Run of an instance.
	// A non-nil error fails the run and Run is never invoked.
	Initialize func(c *ir.Context, userData any) error

	// Clone returns the user data of a new sibling instance.
	// When nil, clones share the original user data.
	Clone func(userData any) any

	// Run executes the pass on op. Failure is reported by calling
	// ext.SignalFailure.
	Run func(op *ir.Operation, ext *ExternalPass, userData any)
}

// ExternalPass adapts ExternalCallbacks to the Pass interface.
//
// INVARIANT: once the owning PassManager is closed, Destruct has been called
// once for the original instance and once for every clone.
type ExternalPass struct {
	info     Info
	cb       ExternalCallbacks
	userData any
	x        *Execution
	closed   bool
}

// NewExternalPass creates an adapter and calls cb.Construct. A zero id
// allocates a fresh TypeID. opName restricts the pass to one operation kind;
// dialects lists the dialects Run may assume are loaded.
func NewExternalPass(id TypeID, name, argument, description, opName string,
	dialects []string, cb ExternalCallbacks, userData any) *ExternalPass {
	if id == 0 {
		id = NewTypeID()
	}
	ext := &ExternalPass{
		info: Info{
			ID:          id,
			Name:        name,
			Argument:    argument,
			Description: description,
			OpName:      opName,
			Dialects:    append([]string(nil), dialects...),
		},
		cb:       cb,
		userData: userData,
	}
	ext.info.Options = NewOptions(ext.info.Mnemonic())
	if cb.Construct != nil {
		cb.Construct(userData)
	}
	return ext
}

// Pass returns the adapter as a generic Pass.
func (ext *ExternalPass) Pass() Pass {
	return ext
}

// UserData returns the user data of this instance.
func (ext *ExternalPass) UserData() any {
	return ext.userData
}

// SignalFailure marks the current Run as failed. Calling it outside Run has
// no effect.
func (ext *ExternalPass) SignalFailure() {
	if ext.x != nil {
		ext.x.SignalFailure()
	}
}

// EmitError reports a diagnostic about op during Run.
func (ext *ExternalPass) EmitError(op *ir.Operation, msg string) {
	if ext.x != nil {
		ext.x.EmitError(op, msg)
	}
}

// Info implements Pass.
func (ext *ExternalPass) Info() *Info {
	return &ext.info
}

// Initialize implements Pass.
func (ext *ExternalPass) Initialize(c *ir.Context) error {
	if ext.cb.Initialize == nil {
		return nil
	}
	return ext.cb.Initialize(c, ext.userData)
}

// Run implements Pass.
func (ext *ExternalPass) Run(op *ir.Operation, x *Execution) {
	if ext.cb.Run == nil {
		return
	}
	ext.x = x
	defer func() { ext.x = nil }()
	ext.cb.Run(op, ext, ext.userData)
}

// Clone implements Pass. The clone shares the TypeID and callbacks and gets
// its user data from cb.Clone.
func (ext *ExternalPass) Clone() Pass {
	data := ext.userData
	if ext.cb.Clone != nil {
		data = ext.cb.Clone(ext.userData)
	}
	cp := &ExternalPass{
		info:     ext.info,
		cb:       ext.cb,
		userData: data,
	}
	cp.info.Dialects = append([]string(nil), ext.info.Dialects...)
	cp.info.Options = NewOptions(ext.info.Mnemonic())
	return cp
}

// Close implements Pass. Destruct runs on the first call only.
func (ext *ExternalPass) Close() {
	if ext.closed {
		return
	}
	ext.closed = true
	if ext.cb.Destruct != nil {
		ext.cb.Destruct(ext.userData)
	}
}
