package pdu

import "github.com/tinymodbus/tinymodbus/merr"

// Validate enforces the Modbus quantity/value ranges on req before it is
// serialized (§4.4). It is a pure predicate: no I/O, no mutation.
func Validate(req Request) error {
	switch req.Function {
	case ReadCoils, ReadDiscreteInputs:
		return validateQuantity(req.Quantity, 1, 2000)

	case ReadHoldingRegisters, ReadInputRegisters:
		return validateQuantity(req.Quantity, 1, 125)

	case WriteSingleCoil:
		if req.Value != CoilOn && req.Value != CoilOff {
			return merr.New(merr.FailIllegalDataValue, "write single coil value must be 0x0000 or 0xFF00, got 0x%04X", req.Value)
		}
		return nil

	case WriteSingleRegister:
		return nil // no range restriction

	case WriteMultipleCoils:
		if err := validateQuantity(req.Quantity, 1, 1968); err != nil {
			return err
		}
		want := (int(req.Quantity) + 7) / 8
		if len(req.Coils) != want {
			return merr.New(merr.FailIllegalDataValue, "write multiple coils byte_count must be %d for quantity %d, got %d", want, req.Quantity, len(req.Coils))
		}
		return nil

	case WriteMultipleRegisters:
		if err := validateQuantity(req.Quantity, 1, 123); err != nil {
			return err
		}
		if len(req.Registers) != int(req.Quantity) {
			return merr.New(merr.FailIllegalDataValue, "write multiple registers quantity %d does not match %d supplied registers", req.Quantity, len(req.Registers))
		}
		return nil

	default:
		return merr.New(merr.FailIllegalFunction, "unsupported function code: %d", req.Function)
	}
}

func validateQuantity(quantity, min, max uint16) error {
	if quantity < min || quantity > max {
		return merr.New(merr.FailIllegalDataValue, "quantity out of range (%d-%d): %d", min, max, quantity)
	}
	return nil
}
