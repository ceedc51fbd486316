package modbus

import (
	"github.com/tinymodbus/tinymodbus/adu"
	"github.com/tinymodbus/tinymodbus/merr"
	"github.com/tinymodbus/tinymodbus/pdu"
)

// maxSlots is the default capacity of a server's callback slot table.
const maxSlots = 10

// AnyAddress is the wildcard listening address: a slot registered at
// AnyAddress answers any unit id that has no exact-match slot.
const AnyAddress = adu.AnyAddress

// Callbacks is what a server Handle dispatches decoded requests to, one
// call per addressed coil or register in the requested range. Status is
// merr.Ok for success, merr.Ignore to suppress any reply, or one of the
// Modbus exception kinds (merr.ExcIllegalDataAddress and friends) to answer
// with an exception.
type Callbacks interface {
	ReadCoil(unit uint8, address uint16) (value bool, status merr.Kind)
	ReadDiscreteInput(unit uint8, address uint16) (value bool, status merr.Kind)
	ReadHoldingRegister(unit uint8, address uint16) (value uint16, status merr.Kind)
	ReadInputRegister(unit uint8, address uint16) (value uint16, status merr.Kind)
	WriteCoil(unit uint8, address uint16, value bool) (status merr.Kind)
	WriteHoldingRegister(unit uint8, address uint16, value uint16) (status merr.Kind)
}

type slot struct {
	occupied  bool
	address   int // 0..255 unit id, or AnyAddress
	callbacks Callbacks
}

// SetCallback registers callbacks to answer requests addressed to
// listeningAddress (0..255, or AnyAddress for the wildcard). It replaces
// any existing slot for the same address, or inserts into the first empty
// slot. Passing nil callbacks clears the slot. Returns FailCapacity if no
// slot is free for a new address.
func (h *Handle) SetCallback(listeningAddress int, callbacks Callbacks) error {
	if err := h.requireRole(RoleServer); err != nil {
		return err
	}
	if listeningAddress != AnyAddress && (listeningAddress < 0 || listeningAddress > 255) {
		return merr.New(merr.FailInvalidArgument, "listening address %d out of range", listeningAddress)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	freeIdx := -1
	for i := range h.slots {
		if h.slots[i].occupied && h.slots[i].address == listeningAddress {
			if callbacks == nil {
				h.slots[i] = slot{}
			} else {
				h.slots[i].callbacks = callbacks
			}
			return nil
		}
		if freeIdx == -1 && !h.slots[i].occupied {
			freeIdx = i
		}
	}
	if callbacks == nil {
		return nil // clearing an address with no slot is a no-op
	}
	if freeIdx == -1 {
		return merr.New(merr.FailCapacity, "server callback table has no free slot (capacity %d)", maxSlots)
	}
	h.slots[freeIdx] = slot{occupied: true, address: listeningAddress, callbacks: callbacks}
	return nil
}

func (h *Handle) findCallbacks(unitID uint8) Callbacks {
	var wildcard Callbacks
	for i := range h.slots {
		if !h.slots[i].occupied {
			continue
		}
		if h.slots[i].address == int(unitID) {
			return h.slots[i].callbacks
		}
		if h.slots[i].address == AnyAddress {
			wildcard = h.slots[i].callbacks
		}
	}
	return wildcard
}

// ServeOne runs a single server iteration: read one request ADU, dispatch it
// to the registered callback for its unit id, and send the reply (unless the
// request was a broadcast, or a callback returned Ignore).
func (h *Handle) ServeOne() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.requireRole(RoleServer); err != nil {
		return err
	}

	unitID, txnID, reqPDU, err := h.readRequestPDU()
	if err != nil {
		return err
	}

	req, parseErr := pdu.ParseRequest(reqPDU)
	broadcast := unitID == adu.BroadcastAddress

	var replyPDU []byte
	var pduScratch [pdu.MaxPDUSize]byte
	suppress := false

	if parseErr != nil {
		if broadcast {
			return nil
		}
		var fc pdu.FunctionCode
		if len(reqPDU) > 0 {
			fc = pdu.FunctionCode(reqPDU[0])
		}
		replyPDU = pdu.AppendException(pduScratch[:0], fc, merr.ExcIllegalFunction)
	} else {
		cb := h.findCallbacks(unitID)
		if cb == nil {
			if broadcast {
				return nil
			}
			// §4.6 scopes the unmatched-unit exception reply to serial, but
			// a TCP server with no slot registered for an addressed unit id
			// is equally unable to answer, so the same reply is sent here
			// regardless of encapsulation.
			replyPDU = pdu.AppendException(pduScratch[:0], req.Function, merr.ExcIllegalFunction)
		} else {
			replyPDU, suppress = h.dispatch(pduScratch[:0], cb, unitID, req)
			if broadcast {
				return nil
			}
		}
	}

	if suppress {
		return nil
	}
	return h.sendReply(unitID, txnID, replyPDU)
}

// dispatch invokes cb once per addressed coil/register and builds the
// reply PDU into scratch. The first callback that answers Ignore stops the
// dispatch; suppress then reports that no reply should be sent.
func (h *Handle) dispatch(scratch []byte, cb Callbacks, unit uint8, req pdu.Request) (replyPDU []byte, suppress bool) {
	switch req.Function {
	case pdu.ReadCoils:
		coils := make([]bool, req.Quantity)
		for i := range coils {
			v, status := cb.ReadCoil(unit, req.StartAddress+uint16(i))
			if reply, done, sup := exceptionOrIgnore(scratch, req.Function, status); done {
				return reply, sup
			}
			coils[i] = v
		}
		return pdu.AppendReadBitsResponse(scratch, req.Function, pdu.PackCoils(coils)), false

	case pdu.ReadDiscreteInputs:
		coils := make([]bool, req.Quantity)
		for i := range coils {
			v, status := cb.ReadDiscreteInput(unit, req.StartAddress+uint16(i))
			if reply, done, sup := exceptionOrIgnore(scratch, req.Function, status); done {
				return reply, sup
			}
			coils[i] = v
		}
		return pdu.AppendReadBitsResponse(scratch, req.Function, pdu.PackCoils(coils)), false

	case pdu.ReadHoldingRegisters:
		regs := make([]uint16, req.Quantity)
		for i := range regs {
			v, status := cb.ReadHoldingRegister(unit, req.StartAddress+uint16(i))
			if reply, done, sup := exceptionOrIgnore(scratch, req.Function, status); done {
				return reply, sup
			}
			regs[i] = v
		}
		return pdu.AppendReadRegistersResponse(scratch, req.Function, regs), false

	case pdu.ReadInputRegisters:
		regs := make([]uint16, req.Quantity)
		for i := range regs {
			v, status := cb.ReadInputRegister(unit, req.StartAddress+uint16(i))
			if reply, done, sup := exceptionOrIgnore(scratch, req.Function, status); done {
				return reply, sup
			}
			regs[i] = v
		}
		return pdu.AppendReadRegistersResponse(scratch, req.Function, regs), false

	case pdu.WriteSingleCoil:
		status := cb.WriteCoil(unit, req.Address, req.Value == pdu.CoilOn)
		if reply, done, sup := exceptionOrIgnore(scratch, req.Function, status); done {
			return reply, sup
		}
		return pdu.AppendWriteSingleResponse(scratch, req.Function, req.Address, req.Value), false

	case pdu.WriteSingleRegister:
		status := cb.WriteHoldingRegister(unit, req.Address, req.Value)
		if reply, done, sup := exceptionOrIgnore(scratch, req.Function, status); done {
			return reply, sup
		}
		return pdu.AppendWriteSingleResponse(scratch, req.Function, req.Address, req.Value), false

	case pdu.WriteMultipleCoils:
		values := pdu.UnpackCoils(req.Coils, int(req.Quantity))
		for i, v := range values {
			status := cb.WriteCoil(unit, req.StartAddress+uint16(i), v)
			if reply, done, sup := exceptionOrIgnore(scratch, req.Function, status); done {
				return reply, sup
			}
		}
		return pdu.AppendWriteMultipleResponse(scratch, req.Function, req.StartAddress, req.Quantity), false

	case pdu.WriteMultipleRegisters:
		for i, v := range req.Registers {
			status := cb.WriteHoldingRegister(unit, req.StartAddress+uint16(i), v)
			if reply, done, sup := exceptionOrIgnore(scratch, req.Function, status); done {
				return reply, sup
			}
		}
		return pdu.AppendWriteMultipleResponse(scratch, req.Function, req.StartAddress, req.Quantity), false

	default:
		return pdu.AppendException(scratch, req.Function, merr.ExcIllegalFunction), false
	}
}

// exceptionOrIgnore interprets one callback's status. done reports whether
// dispatch should stop and return immediately (either with an exception
// reply or a suppressed one); suppress reports the latter.
func exceptionOrIgnore(scratch []byte, fc pdu.FunctionCode, status merr.Kind) (reply []byte, done bool, suppress bool) {
	switch status {
	case merr.Ok:
		return nil, false, false
	case merr.Ignore:
		return nil, true, true
	default:
		return pdu.AppendException(scratch, fc, status), true, false
	}
}

// readRequestPDU performs the server-side bounded-lookahead read: the
// framing header, the function code, enough bytes to size the request, the
// remainder, then verifies and strips framing. It returns the unit id the
// request was addressed to and, for TCP, the MBAP transaction id to echo
// back on the reply.
func (h *Handle) readRequestPDU() (unitID uint8, txnID uint16, reqPDU []byte, err error) {
	switch h.kind {
	case adu.TCP:
		return h.readRequestTCP()
	case adu.RTU:
		unitID, reqPDU, err = h.readRequestRTU()
		return unitID, 0, reqPDU, err
	case adu.ASCII:
		unitID, reqPDU, err = h.readRequestASCII()
		return unitID, 0, reqPDU, err
	default:
		return 0, 0, nil, merr.New(merr.FailInvalidMode, "unknown encapsulation %v", h.kind)
	}
}

func (h *Handle) readRequestRTU() (uint8, []byte, error) {
	header := h.buf[:2] // address + function code
	if err := h.readFull(header); err != nil {
		return 0, nil, err
	}
	headerLen, err := pdu.RequestHeaderLen(header[1])
	if err != nil {
		return 0, nil, err
	}
	if err := h.readFull(h.buf[2 : 1+headerLen]); err != nil {
		return 0, nil, err
	}
	pduLen, err := pdu.RequestTotalLen(h.buf[1 : 1+headerLen])
	if err != nil {
		return 0, nil, err
	}
	total := 1 + pduLen + 2
	if total > len(h.buf) {
		return 0, nil, merr.New(merr.FailBufferCapacity, "RTU request of %d bytes exceeds scratch capacity %d", total, len(h.buf))
	}
	if err := h.readFull(h.buf[1+headerLen : total]); err != nil {
		return 0, nil, err
	}
	address, pduBytes, err := adu.UnframeRTU(h.buf[:total])
	return address, pduBytes, err
}

func (h *Handle) readRequestASCII() (uint8, []byte, error) {
	// ':' + 2 hex address + 2 hex function code
	lookahead := h.buf[:5]
	if err := h.readFull(lookahead); err != nil {
		return 0, nil, err
	}
	fc, err := decodeHexByte(lookahead[3], lookahead[4])
	if err != nil {
		return 0, nil, err
	}
	headerLen, err := pdu.RequestHeaderLen(fc)
	if err != nil {
		return 0, nil, err
	}
	// remaining header bytes (headerLen-1 more PDU bytes), 2 hex chars each
	if err := h.readFull(h.buf[5 : 5+(headerLen-1)*2]); err != nil {
		return 0, nil, err
	}
	headerHex := h.buf[3 : 5+(headerLen-1)*2]
	headerBin, err := decodeHexBytes(headerHex)
	if err != nil {
		return 0, nil, err
	}
	pduLen, err := pdu.RequestTotalLen(headerBin)
	if err != nil {
		return 0, nil, err
	}
	tailLen := (pduLen-headerLen)*2 + 2 + 2 // remaining PDU hex + LRC hex + CRLF
	total := 5 + (headerLen-1)*2 + tailLen
	if total > len(h.buf) {
		return 0, nil, merr.New(merr.FailBufferCapacity, "ASCII request of %d bytes exceeds scratch capacity %d", total, len(h.buf))
	}
	if err := h.readFull(h.buf[5+(headerLen-1)*2 : total]); err != nil {
		return 0, nil, err
	}
	address, pduBytes, err := adu.UnframeASCII(h.buf[:total])
	return address, pduBytes, err
}

func (h *Handle) readRequestTCP() (uint8, uint16, []byte, error) {
	prefix := h.buf[:6]
	if err := h.readFull(prefix); err != nil {
		return 0, 0, nil, err
	}
	txnID, length, err := adu.ParseMBAPPrefix(prefix)
	if err != nil {
		return 0, 0, nil, err
	}
	total := 6 + int(length)
	if total > len(h.buf) {
		return 0, 0, nil, merr.New(merr.FailBufferCapacity, "TCP request of %d bytes exceeds scratch capacity %d", total, len(h.buf))
	}
	if total < 7+1 {
		return 0, 0, nil, merr.New(merr.FailMalformedFrame, "MBAP length %d too short to carry a PDU", length)
	}
	if err := h.readFull(h.buf[6:8]); err != nil { // unit id + function code
		return 0, 0, nil, err
	}
	fc := h.buf[7]
	headerLen, err := pdu.RequestHeaderLen(fc)
	if err != nil {
		return 0, 0, nil, err
	}
	if err := h.readFull(h.buf[8 : 7+headerLen]); err != nil {
		return 0, 0, nil, err
	}
	pduLen, err := pdu.RequestTotalLen(h.buf[7 : 7+headerLen])
	if err != nil {
		return 0, 0, nil, err
	}
	wantTotal := 7 + pduLen
	if wantTotal != total {
		return 0, 0, nil, merr.New(merr.FailMalformedFrame, "MBAP length %d does not match request size oracle", length)
	}
	if err := h.readFull(h.buf[7+headerLen : total]); err != nil {
		return 0, 0, nil, err
	}
	_, unitID, pduBytes, err := adu.UnframeTCP(h.buf[:total])
	return unitID, txnID, pduBytes, err
}

func decodeHexBytes(hexBody []byte) ([]byte, error) {
	out := make([]byte, len(hexBody)/2)
	for i := range out {
		b, err := decodeHexByte(hexBody[2*i], hexBody[2*i+1])
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// sendReply frames replyPDU for the active encapsulation and writes it.
func (h *Handle) sendReply(unitID uint8, txnID uint16, replyPDU []byte) error {
	var frame []byte
	switch h.kind {
	case adu.RTU:
		frame = adu.FrameRTU(h.buf[:0], unitID, replyPDU)
	case adu.ASCII:
		frame = adu.FrameASCII(h.buf[:0], unitID, replyPDU)
	case adu.TCP:
		frame = adu.FrameTCP(h.buf[:0], txnID, unitID, replyPDU)
	default:
		return merr.New(merr.FailInvalidMode, "unknown encapsulation %v", h.kind)
	}
	if len(frame) > cap(h.buf) {
		return merr.New(merr.FailBufferCapacity, "reply frame of %d bytes exceeds scratch capacity %d", len(frame), cap(h.buf))
	}
	return h.writeAll(frame)
}
