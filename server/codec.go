package server

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"dynalocal/ddberrors"
)

// wireValue is one AttributeValue in its x-amz-json-1.0 form: a single-key
// object whose key names the datatype, e.g. {"S":"hello"} or {"N":"42"}.
type wireValue map[string]json.RawMessage

// wireItem is an attribute-name to wireValue map, the wire form of an item.
type wireItem map[string]wireValue

func decodeValue(wv wireValue) (types.AttributeValue, error) {
	if len(wv) != 1 {
		return nil, ddberrors.Validation("Supplied AttributeValue is empty, must contain exactly one of the supported datatypes")
	}
	for kind, raw := range wv {
		switch kind {
		case "S":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, serialization(kind, err)
			}
			return &types.AttributeValueMemberS{Value: v}, nil
		case "N":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, serialization(kind, err)
			}
			return &types.AttributeValueMemberN{Value: v}, nil
		case "B":
			var v []byte
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, serialization(kind, err)
			}
			return &types.AttributeValueMemberB{Value: v}, nil
		case "BOOL":
			var v bool
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, serialization(kind, err)
			}
			return &types.AttributeValueMemberBOOL{Value: v}, nil
		case "NULL":
			var v bool
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, serialization(kind, err)
			}
			return &types.AttributeValueMemberNULL{Value: v}, nil
		case "SS":
			var v []string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, serialization(kind, err)
			}
			return &types.AttributeValueMemberSS{Value: v}, nil
		case "NS":
			var v []string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, serialization(kind, err)
			}
			return &types.AttributeValueMemberNS{Value: v}, nil
		case "BS":
			var v [][]byte
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, serialization(kind, err)
			}
			return &types.AttributeValueMemberBS{Value: v}, nil
		case "L":
			var elems []wireValue
			if err := json.Unmarshal(raw, &elems); err != nil {
				return nil, serialization(kind, err)
			}
			list := make([]types.AttributeValue, 0, len(elems))
			for _, e := range elems {
				av, err := decodeValue(e)
				if err != nil {
					return nil, err
				}
				list = append(list, av)
			}
			return &types.AttributeValueMemberL{Value: list}, nil
		case "M":
			var fields wireItem
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, serialization(kind, err)
			}
			m, err := decodeItem(fields)
			if err != nil {
				return nil, err
			}
			if m == nil {
				m = map[string]types.AttributeValue{}
			}
			return &types.AttributeValueMemberM{Value: m}, nil
		default:
			return nil, &ddberrors.APIError{
				Code:    "SerializationException",
				Message: fmt.Sprintf("Unknown attribute value type: %s", kind),
			}
		}
	}
	return nil, nil // unreachable
}

func decodeItem(wi wireItem) (map[string]types.AttributeValue, error) {
	if wi == nil {
		return nil, nil
	}
	item := make(map[string]types.AttributeValue, len(wi))
	for name, wv := range wi {
		av, err := decodeValue(wv)
		if err != nil {
			return nil, err
		}
		item[name] = av
	}
	return item, nil
}

func encodeValue(av types.AttributeValue) map[string]any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return map[string]any{"S": v.Value}
	case *types.AttributeValueMemberN:
		return map[string]any{"N": v.Value}
	case *types.AttributeValueMemberB:
		return map[string]any{"B": v.Value}
	case *types.AttributeValueMemberBOOL:
		return map[string]any{"BOOL": v.Value}
	case *types.AttributeValueMemberNULL:
		return map[string]any{"NULL": v.Value}
	case *types.AttributeValueMemberSS:
		return map[string]any{"SS": v.Value}
	case *types.AttributeValueMemberNS:
		return map[string]any{"NS": v.Value}
	case *types.AttributeValueMemberBS:
		return map[string]any{"BS": v.Value}
	case *types.AttributeValueMemberL:
		list := make([]map[string]any, 0, len(v.Value))
		for _, e := range v.Value {
			list = append(list, encodeValue(e))
		}
		return map[string]any{"L": list}
	case *types.AttributeValueMemberM:
		return map[string]any{"M": encodeItem(v.Value)}
	default:
		return nil
	}
}

func encodeItem(item map[string]types.AttributeValue) map[string]any {
	out := make(map[string]any, len(item))
	for name, av := range item {
		out[name] = encodeValue(av)
	}
	return out
}

func encodeItems(items []map[string]types.AttributeValue) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, encodeItem(item))
	}
	return out
}

func serialization(kind string, err error) error {
	return &ddberrors.APIError{
		Code:    "SerializationException",
		Message: fmt.Sprintf("Malformed %s attribute value: %v", kind, err),
	}
}
