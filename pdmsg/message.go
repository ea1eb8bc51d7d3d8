package pdmsg

import "encoding/binary"

// MaxDataObjects is the maximum number of 32-bit data objects a
// non-extended message can carry (6.2.1.1).
const MaxDataObjects = 7

// MaxChunkDataBytes is the maximum number of payload bytes in a single
// chunk of a chunked extended message (6.2.1.2.2).
const MaxChunkDataBytes = 26

// MaxExtDataBytes is the maximum reassembled payload size this stack
// accepts. PD rev 3.2 allows chunked extended messages up to 260 bytes
// (6.5); legacy unchunked extended messages are out of scope.
const MaxExtDataBytes = 260

// Message is a fully reassembled, non-extended message: a header plus up
// to MaxDataObjects 32-bit data objects. Used for control messages (zero
// data objects), Source_Capabilities, Request, EPR_Mode, BIST, and the
// other fixed-size data messages.
type Message struct {
	Header Header
	Data   [MaxDataObjects]uint32
}

// DataObjectCount returns the number of valid entries in Data, mirroring
// the header's count field.
func (m Message) DataObjectCount() uint8 { return m.Header.DataObjectCount() }

// Encode serializes the header and data objects into b, little-endian,
// and returns the number of bytes written. b must have room for at least
// 2+4*DataObjectCount() bytes.
func (m Message) Encode(b []byte) int {
	binary.LittleEndian.PutUint16(b, uint16(m.Header))
	n := int(m.DataObjectCount())
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(b[2+i*4:], m.Data[i])
	}
	return 2 + n*4
}

// DecodeMessage parses a non-extended message out of b. b must contain at
// least a header; trailing data objects beyond the header's declared count
// are ignored.
func DecodeMessage(b []byte) Message {
	var m Message
	m.Header = Header(binary.LittleEndian.Uint16(b))
	n := int(m.DataObjectCount())
	for i := 0; i < n && 2+i*4+4 <= len(b); i++ {
		m.Data[i] = binary.LittleEndian.Uint32(b[2+i*4:])
	}
	return m
}

// ChunkPayloadCap is the total payload capacity of a Chunk: either up to
// MaxDataObjects*4 bytes of packed data objects (non-extended message),
// or a 2-byte extended header plus up to MaxChunkDataBytes bytes of chunk
// data (extended message) - both cases land on exactly 28 bytes, which is
// the wire-level budget this stack uses for a single transmission unit.
const ChunkPayloadCap = MaxDataObjects * 4

// Chunk is the single unit of data handed to and received from the
// driver: a message header plus up to ChunkPayloadCap bytes of payload.
// Which way the payload is interpreted depends on Header.Extended():
// false means the payload is packed 32-bit data objects, as produced by
// Message.ToChunk; true means the first two payload bytes are the
// extended header and the rest is this chunk's slice of the reassembled
// extended message, as produced by ExtMessage.ChunkAt.
type Chunk struct {
	Header  Header
	Data    [ChunkPayloadCap]byte
	DataLen uint8
}

// ExtHeader reads the extended header out of Data. Only meaningful when
// Header.Extended() is true.
func (c Chunk) ExtHeader() ExtHeader { return ExtHeader(binary.LittleEndian.Uint16(c.Data[:2])) }

// SetExtHeader writes the extended header into Data.
func (c *Chunk) SetExtHeader(eh ExtHeader) { binary.LittleEndian.PutUint16(c.Data[:2], uint16(eh)) }

// ChunkPayload returns this chunk's slice of extended-message data,
// excluding the 2-byte extended header. Only meaningful when
// Header.Extended() is true.
func (c Chunk) ChunkPayload() []byte {
	n := int(c.DataLen) - 2
	if n < 0 {
		n = 0
	}
	return c.Data[2 : 2+n]
}

// Encode serializes the chunk into b, little-endian, and returns the
// number of bytes written.
func (c Chunk) Encode(b []byte) int {
	binary.LittleEndian.PutUint16(b, uint16(c.Header))
	copy(b[2:], c.Data[:c.DataLen])
	return 2 + int(c.DataLen)
}

// DecodeChunk parses a single wire chunk out of b.
func DecodeChunk(b []byte) Chunk {
	var c Chunk
	c.Header = Header(binary.LittleEndian.Uint16(b))
	n := len(b) - 2
	if n > ChunkPayloadCap {
		n = ChunkPayloadCap
	}
	copy(c.Data[:], b[2:2+n])
	c.DataLen = uint8(n)
	return c
}

// ToChunk packs a non-extended message's data objects into a Chunk ready
// for the driver.
func (m Message) ToChunk() Chunk {
	var c Chunk
	c.Header = m.Header
	n := int(m.DataObjectCount())
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(c.Data[i*4:], m.Data[i])
	}
	c.DataLen = uint8(n * 4)
	return c
}

// ChunkToMessage unpacks a non-extended Chunk back into a Message.
func ChunkToMessage(c Chunk) Message {
	var m Message
	m.Header = c.Header
	n := int(m.DataObjectCount())
	for i := 0; i < n && i*4+4 <= int(c.DataLen); i++ {
		m.Data[i] = binary.LittleEndian.Uint32(c.Data[i*4:])
	}
	return m
}

// ExtMessage is a fully reassembled chunked extended message: the message
// header, the extended header describing total size, and the reassembled
// payload.
type ExtMessage struct {
	Header    Header
	ExtHeader ExtHeader
	Payload   [MaxExtDataBytes]byte
}

// Len returns the reassembled payload length as declared by ExtHeader.
func (m ExtMessage) Len() int { return int(m.ExtHeader.DataSize()) }

// ChunkCount returns the number of chunks needed to carry Len() bytes.
func (m ExtMessage) ChunkCount() int {
	n := m.Len()
	return (n + MaxChunkDataBytes - 1) / MaxChunkDataBytes
}

// ChunkAt returns the n'th chunk (0-based) of this message, ready to pass
// to the driver.
func (m ExtMessage) ChunkAt(n int) Chunk {
	var c Chunk
	c.Header = m.Header
	c.Header.SetExtended(true)
	eh := m.ExtHeader
	eh.SetChunkNumber(uint8(n))
	eh.SetRequestChunk(false)
	c.SetExtHeader(eh)

	start := n * MaxChunkDataBytes
	end := start + MaxChunkDataBytes
	if end > m.Len() {
		end = m.Len()
	}
	n2 := 2
	if start < end {
		n2 += copy(c.Data[2:], m.Payload[start:end])
	}
	c.DataLen = uint8(n2)
	return c
}
