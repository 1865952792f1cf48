// Package attrval implements the value semantics of DynamoDB attribute
// values: type tags, deep equality, type-homogeneous ordering, exact
// decimal arithmetic and set algebra. Numbers never pass through floats;
// all numeric work happens on big.Rat so "4", "4.0" and "4.00" are the
// same value and arithmetic is exact.
package attrval

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Type tags as they appear on the wire.
const (
	TypeString    = "S"
	TypeNumber    = "N"
	TypeBinary    = "B"
	TypeBool      = "BOOL"
	TypeNull      = "NULL"
	TypeList      = "L"
	TypeMap       = "M"
	TypeStringSet = "SS"
	TypeNumberSet = "NS"
	TypeBinarySet = "BS"
)

// TypeTag returns the wire type tag of an attribute value.
func TypeTag(av types.AttributeValue) string {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return TypeString
	case *types.AttributeValueMemberN:
		return TypeNumber
	case *types.AttributeValueMemberB:
		return TypeBinary
	case *types.AttributeValueMemberBOOL:
		return TypeBool
	case *types.AttributeValueMemberNULL:
		return TypeNull
	case *types.AttributeValueMemberL:
		return TypeList
	case *types.AttributeValueMemberM:
		return TypeMap
	case *types.AttributeValueMemberSS:
		return TypeStringSet
	case *types.AttributeValueMemberNS:
		return TypeNumberSet
	case *types.AttributeValueMemberBS:
		return TypeBinarySet
	default:
		panic(fmt.Sprintf("unsupported attribute value type: %T", av))
	}
}

// IsSet reports whether av is one of the three set types.
func IsSet(av types.AttributeValue) bool {
	switch TypeTag(av) {
	case TypeStringSet, TypeNumberSet, TypeBinarySet:
		return true
	}
	return false
}

// ParseNumber parses a DynamoDB decimal number string exactly.
func ParseNumber(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("invalid number: %q", s)
	}
	return r, nil
}

// FormatNumber renders a rational back to the canonical decimal string.
// Denominators are always powers of ten here since inputs are decimal.
func FormatNumber(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	// FloatString with enough digits, then trim trailing zeros.
	s := r.FloatString(38)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}

// NormalizeNumber canonicalizes a decimal string ("4.0" -> "4").
func NormalizeNumber(s string) (string, error) {
	r, err := ParseNumber(s)
	if err != nil {
		return "", err
	}
	return FormatNumber(r), nil
}

// AddNumbers returns a+b as a canonical decimal string.
func AddNumbers(a, b string) (string, error) {
	ra, err := ParseNumber(a)
	if err != nil {
		return "", err
	}
	rb, err := ParseNumber(b)
	if err != nil {
		return "", err
	}
	return FormatNumber(new(big.Rat).Add(ra, rb)), nil
}

// SubtractNumbers returns a-b as a canonical decimal string.
func SubtractNumbers(a, b string) (string, error) {
	ra, err := ParseNumber(a)
	if err != nil {
		return "", err
	}
	rb, err := ParseNumber(b)
	if err != nil {
		return "", err
	}
	return FormatNumber(new(big.Rat).Sub(ra, rb)), nil
}

// Equal is deep equality with DynamoDB semantics: numbers by exact decimal
// value, sets as unordered unique collections, lists positionally, maps by
// key.
func Equal(a, b types.AttributeValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		ra, erra := ParseNumber(av.Value)
		rb, errb := ParseNumber(bv.Value)
		return erra == nil && errb == nil && ra.Cmp(rb) == 0
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(av.Value, bv.Value)
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		bv, ok := b.(*types.AttributeValueMemberNULL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !Equal(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberM:
		bv, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for k, v := range av.Value {
			other, ok := bv.Value[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		return ok && sameStringSet(av.Value, bv.Value)
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		return ok && sameNumberSet(av.Value, bv.Value)
	case *types.AttributeValueMemberBS:
		bv, ok := b.(*types.AttributeValueMemberBS)
		return ok && sameBinarySet(av.Value, bv.Value)
	default:
		return false
	}
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	return true
}

func sameNumberSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		n, err := NormalizeNumber(s)
		if err != nil {
			return false
		}
		set[n] = true
	}
	for _, s := range b {
		n, err := NormalizeNumber(s)
		if err != nil || !set[n] {
			return false
		}
	}
	return true
}

func sameBinarySet(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, bs := range a {
		set[string(bs)] = true
	}
	for _, bs := range b {
		if !set[string(bs)] {
			return false
		}
	}
	return true
}

// Compare orders two values of the same scalar key type: strings and
// binaries byte-lexicographically, numbers by exact numeric value.
// Comparing values of different or unorderable types is an error.
func Compare(a, b types.AttributeValue) (int, error) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, typeMismatch(a, b)
		}
		return strings.Compare(av.Value, bv.Value), nil
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, typeMismatch(a, b)
		}
		ra, err := ParseNumber(av.Value)
		if err != nil {
			return 0, err
		}
		rb, err := ParseNumber(bv.Value)
		if err != nil {
			return 0, err
		}
		return ra.Cmp(rb), nil
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		if !ok {
			return 0, typeMismatch(a, b)
		}
		return bytes.Compare(av.Value, bv.Value), nil
	default:
		return 0, fmt.Errorf("type %s does not support ordering", TypeTag(a))
	}
}

func typeMismatch(a, b types.AttributeValue) error {
	return fmt.Errorf("cannot compare %s with %s", TypeTag(a), TypeTag(b))
}

// Size implements the size() function: string length in bytes, binary
// length, element count for lists, maps and sets. Scalars without a size
// return an error.
func Size(av types.AttributeValue) (int, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return len(v.Value), nil
	case *types.AttributeValueMemberB:
		return len(v.Value), nil
	case *types.AttributeValueMemberL:
		return len(v.Value), nil
	case *types.AttributeValueMemberM:
		return len(v.Value), nil
	case *types.AttributeValueMemberSS:
		return len(v.Value), nil
	case *types.AttributeValueMemberNS:
		return len(v.Value), nil
	case *types.AttributeValueMemberBS:
		return len(v.Value), nil
	default:
		return 0, fmt.Errorf("type %s does not have a size", TypeTag(av))
	}
}

// Contains implements the contains() function: substring match on strings,
// membership on sets and lists.
func Contains(haystack, needle types.AttributeValue) bool {
	switch h := haystack.(type) {
	case *types.AttributeValueMemberS:
		n, ok := needle.(*types.AttributeValueMemberS)
		return ok && strings.Contains(h.Value, n.Value)
	case *types.AttributeValueMemberSS:
		n, ok := needle.(*types.AttributeValueMemberS)
		if !ok {
			return false
		}
		for _, s := range h.Value {
			if s == n.Value {
				return true
			}
		}
		return false
	case *types.AttributeValueMemberNS:
		n, ok := needle.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		for _, s := range h.Value {
			if Equal(&types.AttributeValueMemberN{Value: s}, n) {
				return true
			}
		}
		return false
	case *types.AttributeValueMemberBS:
		n, ok := needle.(*types.AttributeValueMemberB)
		if !ok {
			return false
		}
		for _, bs := range h.Value {
			if bytes.Equal(bs, n.Value) {
				return true
			}
		}
		return false
	case *types.AttributeValueMemberL:
		for _, elem := range h.Value {
			if Equal(elem, needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// SetUnion merges two sets of the same type, deduplicating elements.
// Number elements deduplicate by numeric value.
func SetUnion(a, b types.AttributeValue) (types.AttributeValue, error) {
	switch av := a.(type) {
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		if !ok {
			return nil, typeMismatch(a, b)
		}
		return &types.AttributeValueMemberSS{Value: unionStrings(av.Value, bv.Value)}, nil
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		if !ok {
			return nil, typeMismatch(a, b)
		}
		merged, err := unionNumbers(av.Value, bv.Value)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberNS{Value: merged}, nil
	case *types.AttributeValueMemberBS:
		bv, ok := b.(*types.AttributeValueMemberBS)
		if !ok {
			return nil, typeMismatch(a, b)
		}
		return &types.AttributeValueMemberBS{Value: unionBinaries(av.Value, bv.Value)}, nil
	default:
		return nil, fmt.Errorf("type %s is not a set", TypeTag(a))
	}
}

// SetDifference removes b's elements from a. A nil result means the set
// was emptied; the caller removes the attribute in that case.
func SetDifference(a, b types.AttributeValue) (types.AttributeValue, error) {
	switch av := a.(type) {
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		if !ok {
			return nil, typeMismatch(a, b)
		}
		rest := differenceStrings(av.Value, bv.Value)
		if len(rest) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberSS{Value: rest}, nil
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		if !ok {
			return nil, typeMismatch(a, b)
		}
		rest, err := differenceNumbers(av.Value, bv.Value)
		if err != nil {
			return nil, err
		}
		if len(rest) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberNS{Value: rest}, nil
	case *types.AttributeValueMemberBS:
		bv, ok := b.(*types.AttributeValueMemberBS)
		if !ok {
			return nil, typeMismatch(a, b)
		}
		rest := differenceBinaries(av.Value, bv.Value)
		if len(rest) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberBS{Value: rest}, nil
	default:
		return nil, fmt.Errorf("type %s is not a set", TypeTag(a))
	}
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func unionNumbers(a, b []string) ([]string, error) {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		n, err := NormalizeNumber(s)
		if err != nil {
			return nil, err
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, _ := ParseNumber(out[i])
		rj, _ := ParseNumber(out[j])
		return ri.Cmp(rj) < 0
	})
	return out, nil
}

func unionBinaries(a, b [][]byte) [][]byte {
	seen := make(map[string]bool, len(a)+len(b))
	var out [][]byte
	for _, bs := range append(append([][]byte{}, a...), b...) {
		if !seen[string(bs)] {
			seen[string(bs)] = true
			out = append(out, bs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i], out[j]) < 0 })
	return out
}

func differenceStrings(a, b []string) []string {
	remove := make(map[string]bool, len(b))
	for _, s := range b {
		remove[s] = true
	}
	var out []string
	for _, s := range a {
		if !remove[s] {
			out = append(out, s)
		}
	}
	return out
}

func differenceNumbers(a, b []string) ([]string, error) {
	remove := make(map[string]bool, len(b))
	for _, s := range b {
		n, err := NormalizeNumber(s)
		if err != nil {
			return nil, err
		}
		remove[n] = true
	}
	var out []string
	for _, s := range a {
		n, err := NormalizeNumber(s)
		if err != nil {
			return nil, err
		}
		if !remove[n] {
			out = append(out, s)
		}
	}
	return out, nil
}

func differenceBinaries(a, b [][]byte) [][]byte {
	remove := make(map[string]bool, len(b))
	for _, bs := range b {
		remove[string(bs)] = true
	}
	var out [][]byte
	for _, bs := range a {
		if !remove[string(bs)] {
			out = append(out, bs)
		}
	}
	return out
}

// Copy deep-copies an attribute value so store internals never alias
// caller-visible data.
func Copy(av types.AttributeValue) types.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return &types.AttributeValueMemberS{Value: v.Value}
	case *types.AttributeValueMemberN:
		return &types.AttributeValueMemberN{Value: v.Value}
	case *types.AttributeValueMemberB:
		return &types.AttributeValueMemberB{Value: append([]byte(nil), v.Value...)}
	case *types.AttributeValueMemberBOOL:
		return &types.AttributeValueMemberBOOL{Value: v.Value}
	case *types.AttributeValueMemberNULL:
		return &types.AttributeValueMemberNULL{Value: v.Value}
	case *types.AttributeValueMemberL:
		out := make([]types.AttributeValue, len(v.Value))
		for i, elem := range v.Value {
			out[i] = Copy(elem)
		}
		return &types.AttributeValueMemberL{Value: out}
	case *types.AttributeValueMemberM:
		out := make(map[string]types.AttributeValue, len(v.Value))
		for k, elem := range v.Value {
			out[k] = Copy(elem)
		}
		return &types.AttributeValueMemberM{Value: out}
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: append([]string(nil), v.Value...)}
	case *types.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: append([]string(nil), v.Value...)}
	case *types.AttributeValueMemberBS:
		out := make([][]byte, len(v.Value))
		for i, bs := range v.Value {
			out[i] = append([]byte(nil), bs...)
		}
		return &types.AttributeValueMemberBS{Value: out}
	default:
		panic(fmt.Sprintf("unsupported attribute value type: %T", av))
	}
}

// CopyItem deep-copies an item. Nil in, nil out.
func CopyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = Copy(v)
	}
	return out
}

// EncodeKeyString renders a scalar key value as a canonical string usable
// as a map key and for deterministic partition ordering. Numbers use a
// padded form so lexicographic order on the encoding is stable (not
// numeric order; partition order only needs determinism).
func EncodeKeyString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S\x00" + v.Value
	case *types.AttributeValueMemberN:
		n, err := NormalizeNumber(v.Value)
		if err != nil {
			n = v.Value
		}
		return "N\x00" + n
	case *types.AttributeValueMemberB:
		return "B\x00" + string(v.Value)
	default:
		panic(fmt.Sprintf("unsupported key type: %T", av))
	}
}
