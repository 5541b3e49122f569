package checkpoints

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/sevagh/go-unmix/optimizer"
)

// Checkpoint records are framed with the protobuf wire format, hand-encoded
// via protowire. Field layout:
//
//	Record:       1=epoch (varint), 2=best_loss (fixed64),
//	              3=weight (bytes, repeated), 4=optimizer_state (bytes)
//	WeightTensor: 1=name (bytes), 2=shape dim (varint, repeated),
//	              3=data (bytes, packed fixed64)
//	State:        1=type (bytes), 2=step_count (varint),
//	              3=slot (bytes, repeated)
//	StateTensor:  1=name (bytes), 2=slot_type (bytes),
//	              3=data (bytes, packed fixed64)
const (
	recordEpochField     = 1
	recordBestLossField  = 2
	recordWeightField    = 3
	recordOptimizerField = 4

	weightNameField  = 1
	weightShapeField = 2
	weightDataField  = 3

	stateTypeField = 1
	stateStepField = 2
	stateSlotField = 3

	slotNameField = 1
	slotTypeField = 2
	slotDataField = 3
)

func appendFloat64Packed(b []byte, values []float64) []byte {
	packed := make([]byte, 0, 8*len(values))
	for _, v := range values {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	return protowire.AppendBytes(b, packed)
}

func consumeFloat64Packed(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("packed float64 field has %d bytes, not a multiple of 8", len(b))
	}
	values := make([]float64, 0, len(b)/8)
	for len(b) > 0 {
		bits, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		values = append(values, math.Float64frombits(bits))
		b = b[n:]
	}
	return values, nil
}

func encodeWeight(w WeightTensor) []byte {
	var b []byte
	b = protowire.AppendTag(b, weightNameField, protowire.BytesType)
	b = protowire.AppendString(b, w.Name)
	for _, dim := range w.Shape {
		b = protowire.AppendTag(b, weightShapeField, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(dim))
	}
	b = protowire.AppendTag(b, weightDataField, protowire.BytesType)
	b = appendFloat64Packed(b, w.Data)
	return b
}

func decodeWeight(b []byte) (WeightTensor, error) {
	var w WeightTensor
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return w, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == weightNameField && typ == protowire.BytesType:
			name, n := protowire.ConsumeString(b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			w.Name = name
			b = b[n:]
		case num == weightShapeField && typ == protowire.VarintType:
			dim, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			w.Shape = append(w.Shape, int(dim))
			b = b[n:]
		case num == weightDataField && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			data, err := consumeFloat64Packed(raw)
			if err != nil {
				return w, err
			}
			w.Data = data
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return w, nil
}

func encodeState(s *optimizer.State) []byte {
	var b []byte
	b = protowire.AppendTag(b, stateTypeField, protowire.BytesType)
	b = protowire.AppendString(b, s.Type)
	b = protowire.AppendTag(b, stateStepField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.StepCount))
	for _, slot := range s.Slots {
		var sb []byte
		sb = protowire.AppendTag(sb, slotNameField, protowire.BytesType)
		sb = protowire.AppendString(sb, slot.Name)
		sb = protowire.AppendTag(sb, slotTypeField, protowire.BytesType)
		sb = protowire.AppendString(sb, slot.SlotType)
		sb = protowire.AppendTag(sb, slotDataField, protowire.BytesType)
		sb = appendFloat64Packed(sb, slot.Data)

		b = protowire.AppendTag(b, stateSlotField, protowire.BytesType)
		b = protowire.AppendBytes(b, sb)
	}
	return b
}

func decodeState(b []byte) (*optimizer.State, error) {
	state := &optimizer.State{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == stateTypeField && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			state.Type = s
			b = b[n:]
		case num == stateStepField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			state.StepCount = int64(v)
			b = b[n:]
		case num == stateSlotField && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			slot, err := decodeSlot(raw)
			if err != nil {
				return nil, err
			}
			state.Slots = append(state.Slots, slot)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return state, nil
}

func decodeSlot(b []byte) (optimizer.StateTensor, error) {
	var slot optimizer.StateTensor
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return slot, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == slotNameField && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return slot, protowire.ParseError(n)
			}
			slot.Name = s
			b = b[n:]
		case num == slotTypeField && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return slot, protowire.ParseError(n)
			}
			slot.SlotType = s
			b = b[n:]
		case num == slotDataField && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return slot, protowire.ParseError(n)
			}
			data, err := consumeFloat64Packed(raw)
			if err != nil {
				return slot, err
			}
			slot.Data = data
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return slot, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return slot, nil
}

// encodeRecord serializes a full checkpoint record.
func encodeRecord(r *Record) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil checkpoint record")
	}
	if r.Epoch < 0 {
		return nil, fmt.Errorf("negative epoch %d", r.Epoch)
	}

	var b []byte
	b = protowire.AppendTag(b, recordEpochField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Epoch))
	b = protowire.AppendTag(b, recordBestLossField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(r.BestLoss))
	for _, w := range r.Weights {
		b = protowire.AppendTag(b, recordWeightField, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeWeight(w))
	}
	if r.OptimizerState != nil {
		b = protowire.AppendTag(b, recordOptimizerField, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeState(r.OptimizerState))
	}
	return b, nil
}

// decodeRecord parses a full checkpoint record.
func decodeRecord(b []byte) (*Record, error) {
	record := &Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == recordEpochField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			record.Epoch = int(v)
			b = b[n:]
		case num == recordBestLossField && typ == protowire.Fixed64Type:
			bits, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			record.BestLoss = math.Float64frombits(bits)
			b = b[n:]
		case num == recordWeightField && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			w, err := decodeWeight(raw)
			if err != nil {
				return nil, err
			}
			record.Weights = append(record.Weights, w)
			b = b[n:]
		case num == recordOptimizerField && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			state, err := decodeState(raw)
			if err != nil {
				return nil, err
			}
			record.OptimizerState = state
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return record, nil
}
