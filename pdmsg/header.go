// Package pdmsg defines the wire types for USB Power Delivery rev 3.2
// messages: headers, power/request data objects, and the small set of
// extended-message control structures a sink needs (EPR mode, extended
// control, revision, BIST).
//
// Decoding follows the bit layouts of PD rev 3.2 exactly; all multi-byte
// fields are little-endian on the wire regardless of host endianness.
package pdmsg

// Header is the 16-bit PD message header (6.2.1.1).
type Header uint16

// MessageType returns the 5-bit message type. Control and data messages
// share the same numeric space; IsData distinguishes them.
func (h Header) MessageType() uint8 { return uint8(h & 0b11111) }

// SetMessageType sets the message type field.
func (h *Header) SetMessageType(t uint8) {
	*h = (*h &^ 0b11111) | Header(t&0b11111)
}

// DataRole returns the sender's data role bit.
func (h Header) DataRole() DataRole { return DataRole((h >> 5) & 1) }

// SetDataRole sets the sender's data role bit.
func (h *Header) SetDataRole(r DataRole) {
	*h = (*h &^ (1 << 5)) | Header(r&1)<<5
}

// SpecRevision returns the negotiated spec revision field.
func (h Header) SpecRevision() Revision { return Revision((h >> 6) & 0b11) }

// SetSpecRevision sets the spec revision field.
func (h *Header) SetSpecRevision(r Revision) {
	*h = (*h &^ (0b11 << 6)) | Header(r&0b11)<<6
}

// PowerRole returns the sender's power role bit.
func (h Header) PowerRole() PowerRole { return PowerRole((h >> 8) & 1) }

// SetPowerRole sets the sender's power role bit.
func (h *Header) SetPowerRole(r PowerRole) {
	*h = (*h &^ (1 << 8)) | Header(r&1)<<8
}

// MessageID returns the 3-bit rolling message id.
func (h Header) MessageID() uint8 { return uint8((h >> 9) & 0b111) }

// SetMessageID sets the 3-bit rolling message id.
func (h *Header) SetMessageID(id uint8) {
	*h = (*h &^ (0b111 << 9)) | Header(id&0b111)<<9
}

// DataObjectCount returns the number of 32-bit data objects following the
// header. Zero means this is a control message.
func (h Header) DataObjectCount() uint8 { return uint8((h >> 12) & 0b111) }

// SetDataObjectCount sets the data object count field.
func (h *Header) SetDataObjectCount(n uint8) {
	*h = (*h &^ (0b111 << 12)) | Header(n&0b111)<<12
}

// Extended returns true if this is an extended message.
func (h Header) Extended() bool { return h&(1<<15) != 0 }

// SetExtended sets or clears the extended message flag.
func (h *Header) SetExtended(e bool) {
	if e {
		*h |= 1 << 15
	} else {
		*h &^= 1 << 15
	}
}

// IsData reports whether the header describes a data message (as opposed
// to a control message). Extended messages are neither.
func (h Header) IsData() bool { return !h.Extended() && h.DataObjectCount() > 0 }

// IsCtrl reports whether the header describes a control message.
func (h Header) IsCtrl() bool { return !h.Extended() && h.DataObjectCount() == 0 }

// Revision is the PD spec revision carried in the header.
type Revision uint8

// Negotiable spec revisions.
const (
	Revision10 Revision = 0b00
	Revision20 Revision = 0b01
	Revision30 Revision = 0b10
)

// PowerRole is the sender's power role.
type PowerRole uint8

// Power roles.
const (
	PowerRoleSink   PowerRole = 0
	PowerRoleSource PowerRole = 1
)

// DataRole is the sender's data role.
type DataRole uint8

// Data roles.
const (
	DataRoleUFP DataRole = 0
	DataRoleDFP DataRole = 1
)

// ExtHeader is the 16-bit extended message header (6.2.1.2), present as the
// first two bytes of the payload of any message with Header.Extended set.
type ExtHeader uint16

// DataSize returns the total reassembled payload size in bytes.
func (h ExtHeader) DataSize() uint16 { return uint16(h & 0x1FF) }

// SetDataSize sets the total reassembled payload size in bytes.
func (h *ExtHeader) SetDataSize(n uint16) {
	*h = (*h &^ 0x1FF) | ExtHeader(n&0x1FF)
}

// RequestChunk reports whether this extended header is a chunk request.
func (h ExtHeader) RequestChunk() bool { return h&(1<<10) != 0 }

// SetRequestChunk sets or clears the chunk-request bit.
func (h *ExtHeader) SetRequestChunk(r bool) {
	if r {
		*h |= 1 << 10
	} else {
		*h &^= 1 << 10
	}
}

// ChunkNumber returns the 4-bit chunk sequence number.
func (h ExtHeader) ChunkNumber() uint8 { return uint8((h >> 11) & 0xF) }

// SetChunkNumber sets the 4-bit chunk sequence number.
func (h *ExtHeader) SetChunkNumber(n uint8) {
	*h = (*h &^ (0xF << 11)) | ExtHeader(n&0xF)<<11
}

// Chunked reports whether the message uses the chunked extended transport.
// Legacy unchunked extended messages are not supported by this stack.
func (h ExtHeader) Chunked() bool { return h&(1<<15) != 0 }

// SetChunked sets or clears the chunked-transport bit.
func (h *ExtHeader) SetChunked(c bool) {
	if c {
		*h |= 1 << 15
	} else {
		*h &^= 1 << 15
	}
}
