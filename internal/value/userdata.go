package value

// Userdata is an opaque host value with an optional metatable, used by
// stdlib façades (io.File handles, ext/sql connections, ext/socket
// connections) to expose Go state to Lua code without a dedicated Value
// arm per façade.
type Userdata struct {
	Data any
	Meta *Table
}

func (*Userdata) valueTag() {}

func NewUserdata(data any) *Userdata {
	return &Userdata{Data: data}
}

func (u *Userdata) Metatable() *Table { return u.Meta }
func (u *Userdata) SetMetatable(mt *Table) { u.Meta = mt }
