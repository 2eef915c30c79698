package functions

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruleforge/engine/pkg/variable"
)

func static(name string, sig Signature, call func([]variable.Variable) (variable.Variable, error)) *Func {
	return &Func{Name: name, Signatures: []Signature{sig}, Call: call}
}

// standardBuiltins returns every builtin spec.md §4.5 names. Static
// functions declare one Signature; composite (overloaded) functions
// declare several, dispatch happening by matching argument count/type the
// way Registry.Call already resolves via matchArity, with the Call closure
// itself handling any remaining type-based branching.
func standardBuiltins() []*Func {
	return []*Func{
		static("len", Signature{Required: []ParamType{TAny}, Return: TNumber}, fnLen),
		static("contains", Signature{Required: []ParamType{TArray, TAny}, Return: TBool}, fnContains),
		static("flatten", Signature{Required: []ParamType{TArray}, Return: TArray}, fnFlatten),

		static("upper", Signature{Required: []ParamType{TString}, Return: TString}, fnUpper),
		static("lower", Signature{Required: []ParamType{TString}, Return: TString}, fnLower),
		static("trim", Signature{Required: []ParamType{TString}, Return: TString}, fnTrim),
		static("startsWith", Signature{Required: []ParamType{TString, TString}, Return: TBool}, fnStartsWith),
		static("endsWith", Signature{Required: []ParamType{TString, TString}, Return: TBool}, fnEndsWith),
		static("matches", Signature{Required: []ParamType{TString, TString}, Return: TBool}, fnMatches),
		static("extract", Signature{Required: []ParamType{TString, TString}, Return: TArray}, fnExtract),
		static("fuzzyMatch", Signature{Required: []ParamType{TString, TString}, Return: TNumber}, fnFuzzyMatch),
		static("split", Signature{Required: []ParamType{TString, TString}, Return: TArray}, fnSplit),

		static("abs", Signature{Required: []ParamType{TNumber}, Return: TNumber}, fnAbs),
		static("sum", Signature{Required: []ParamType{TArray}, Return: TNumber}, fnSum),
		static("avg", Signature{Required: []ParamType{TArray}, Return: TNumber}, fnAvg),
		static("min", Signature{Required: []ParamType{TArray}, Return: TNumber}, fnMin),
		static("max", Signature{Required: []ParamType{TArray}, Return: TNumber}, fnMax),
		static("median", Signature{Required: []ParamType{TArray}, Return: TNumber}, fnMedian),
		static("mode", Signature{Required: []ParamType{TArray}, Return: TNumber}, fnMode),
		static("floor", Signature{Required: []ParamType{TNumber}, Return: TNumber}, fnFloor),
		static("ceil", Signature{Required: []ParamType{TNumber}, Return: TNumber}, fnCeil),
		{Name: "round", Signatures: []Signature{
			{Required: []ParamType{TNumber}, Return: TNumber},
			{Required: []ParamType{TNumber, TNumber}, Return: TNumber},
		}, Call: fnRound},
		static("rand", Signature{Required: []ParamType{TNumber, TNumber}, Return: TNumber}, fnRand),

		static("isNumeric", Signature{Required: []ParamType{TAny}, Return: TBool}, fnIsNumeric),
		static("string", Signature{Required: []ParamType{TAny}, Return: TString}, fnToStringFn),
		static("number", Signature{Required: []ParamType{TAny}, Return: TNumber}, fnToNumberFn),
		static("bool", Signature{Required: []ParamType{TAny}, Return: TBool}, fnToBoolFn),
		static("type", Signature{Required: []ParamType{TAny}, Return: TString}, fnType),

		static("keys", Signature{Required: []ParamType{TObject}, Return: TArray}, fnKeys),
		static("values", Signature{Required: []ParamType{TObject}, Return: TArray}, fnValues),

		static("date", Signature{Required: []ParamType{TString}, Return: TString}, fnDate),
		static("time", Signature{Required: []ParamType{TString}, Return: TString}, fnTime),
		static("duration", Signature{Required: []ParamType{TString}, Return: TString}, fnDuration),
		static("year", Signature{Required: []ParamType{TString}, Return: TNumber}, fnYear),
		static("dayOfWeek", Signature{Required: []ParamType{TString}, Return: TString}, fnDayOfWeek),
	}
}

func fnLen(args []variable.Variable) (variable.Variable, error) {
	return variable.NumberFromInt(int64(args[0].Len())), nil
}

func fnContains(args []variable.Variable) (variable.Variable, error) {
	for _, item := range args[0].ArrayItems() {
		if item.Equal(args[1]) {
			return variable.Bool(true), nil
		}
	}
	return variable.Bool(false), nil
}

func fnFlatten(args []variable.Variable) (variable.Variable, error) {
	var out []variable.Variable
	var walk func(variable.Variable)
	walk = func(v variable.Variable) {
		if v.IsArray() {
			for _, item := range v.ArrayItems() {
				walk(item)
			}
			return
		}
		out = append(out, v)
	}
	walk(args[0])
	return variable.NewArray(out...), nil
}

func fnUpper(args []variable.Variable) (variable.Variable, error) {
	return variable.String(strings.ToUpper(args[0].AsString())), nil
}
func fnLower(args []variable.Variable) (variable.Variable, error) {
	return variable.String(strings.ToLower(args[0].AsString())), nil
}
func fnTrim(args []variable.Variable) (variable.Variable, error) {
	return variable.String(strings.TrimSpace(args[0].AsString())), nil
}
func fnStartsWith(args []variable.Variable) (variable.Variable, error) {
	return variable.Bool(strings.HasPrefix(args[0].AsString(), args[1].AsString())), nil
}
func fnEndsWith(args []variable.Variable) (variable.Variable, error) {
	return variable.Bool(strings.HasSuffix(args[0].AsString(), args[1].AsString())), nil
}
func fnMatches(args []variable.Variable) (variable.Variable, error) {
	re, err := regexp.Compile(args[1].AsString())
	if err != nil {
		return variable.Null, err
	}
	return variable.Bool(re.MatchString(args[0].AsString())), nil
}
func fnExtract(args []variable.Variable) (variable.Variable, error) {
	re, err := regexp.Compile(args[1].AsString())
	if err != nil {
		return variable.Null, err
	}
	matches := re.FindAllString(args[0].AsString(), -1)
	out := make([]variable.Variable, len(matches))
	for i, m := range matches {
		out[i] = variable.String(m)
	}
	return variable.NewArray(out...), nil
}

// fnFuzzyMatch scores string similarity as 1 - normalized Levenshtein
// distance, grounded on the edit-distance family of string comparisons
// common to rule engines that need "close enough" text matching.
func fnFuzzyMatch(args []variable.Variable) (variable.Variable, error) {
	a, b := args[0].AsString(), args[1].AsString()
	dist := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return variable.Number(decimal.NewFromInt(1)), nil
	}
	score := 1 - float64(dist)/float64(maxLen)
	return variable.Number(decimal.NewFromFloat(score).Round(6)), nil
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func fnSplit(args []variable.Variable) (variable.Variable, error) {
	parts := strings.Split(args[0].AsString(), args[1].AsString())
	out := make([]variable.Variable, len(parts))
	for i, p := range parts {
		out[i] = variable.String(p)
	}
	return variable.NewArray(out...), nil
}

func fnAbs(args []variable.Variable) (variable.Variable, error) {
	return variable.Number(args[0].AsNumber().Abs()), nil
}

func numbersOf(v variable.Variable) ([]decimal.Decimal, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("expected an array of numbers")
	}
	out := make([]decimal.Decimal, 0, v.Len())
	for _, item := range v.ArrayItems() {
		if !item.IsNumber() {
			return nil, fmt.Errorf("expected an array of numbers")
		}
		out = append(out, item.AsNumber())
	}
	return out, nil
}

func fnSum(args []variable.Variable) (variable.Variable, error) {
	nums, err := numbersOf(args[0])
	if err != nil {
		return variable.Null, err
	}
	total := decimal.Zero
	for _, n := range nums {
		total = total.Add(n)
	}
	return variable.Number(total), nil
}

func fnAvg(args []variable.Variable) (variable.Variable, error) {
	nums, err := numbersOf(args[0])
	if err != nil {
		return variable.Null, err
	}
	if len(nums) == 0 {
		return variable.Null, fmt.Errorf("avg: empty array")
	}
	total := decimal.Zero
	for _, n := range nums {
		total = total.Add(n)
	}
	return variable.Number(total.DivRound(decimal.NewFromInt(int64(len(nums))), 16)), nil
}

func fnMin(args []variable.Variable) (variable.Variable, error) {
	nums, err := numbersOf(args[0])
	if err != nil || len(nums) == 0 {
		return variable.Null, err
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n.LessThan(m) {
			m = n
		}
	}
	return variable.Number(m), nil
}

func fnMax(args []variable.Variable) (variable.Variable, error) {
	nums, err := numbersOf(args[0])
	if err != nil || len(nums) == 0 {
		return variable.Null, err
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n.GreaterThan(m) {
			m = n
		}
	}
	return variable.Number(m), nil
}

func fnMedian(args []variable.Variable) (variable.Variable, error) {
	nums, err := numbersOf(args[0])
	if err != nil || len(nums) == 0 {
		return variable.Null, err
	}
	sorted := append([]decimal.Decimal{}, nums...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	n := len(sorted)
	if n%2 == 1 {
		return variable.Number(sorted[n/2]), nil
	}
	mid := sorted[n/2-1].Add(sorted[n/2])
	return variable.Number(mid.DivRound(decimal.NewFromInt(2), 16)), nil
}

func fnMode(args []variable.Variable) (variable.Variable, error) {
	nums, err := numbersOf(args[0])
	if err != nil || len(nums) == 0 {
		return variable.Null, err
	}
	counts := map[string]int{}
	best := nums[0]
	bestCount := 0
	for _, n := range nums {
		key := n.String()
		counts[key]++
		if counts[key] > bestCount {
			bestCount = counts[key]
			best = n
		}
	}
	return variable.Number(best), nil
}

func fnFloor(args []variable.Variable) (variable.Variable, error) {
	return variable.Number(args[0].AsNumber().Floor()), nil
}
func fnCeil(args []variable.Variable) (variable.Variable, error) {
	return variable.Number(args[0].AsNumber().Ceil()), nil
}
func fnRound(args []variable.Variable) (variable.Variable, error) {
	places := int32(0)
	if len(args) == 2 {
		places = int32(args[1].AsNumber().IntPart())
	}
	return variable.Number(args[0].AsNumber().Round(places)), nil
}

var randSource = rand.New(rand.NewSource(1))

func fnRand(args []variable.Variable) (variable.Variable, error) {
	lo, hi := args[0].AsNumber(), args[1].AsNumber()
	loF, _ := lo.Float64()
	hiF, _ := hi.Float64()
	if hiF <= loF {
		return variable.Number(lo), nil
	}
	v := loF + randSource.Float64()*(hiF-loF)
	return variable.Number(decimal.NewFromFloat(v)), nil
}

func fnIsNumeric(args []variable.Variable) (variable.Variable, error) {
	v := args[0]
	if v.IsNumber() {
		return variable.Bool(true), nil
	}
	if v.IsString() {
		_, err := variable.NumberFromString(v.AsString())
		return variable.Bool(err == nil), nil
	}
	return variable.Bool(false), nil
}

func fnToStringFn(args []variable.Variable) (variable.Variable, error) {
	return variable.String(stringifyAny(args[0])), nil
}

func stringifyAny(v variable.Variable) string {
	switch v.Kind() {
	case variable.KindNull:
		return "null"
	case variable.KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case variable.KindString:
		return v.AsString()
	case variable.KindNumber:
		return v.AsNumber().String()
	default:
		return fmt.Sprintf("%v", v.ToJSON())
	}
}

func fnToNumberFn(args []variable.Variable) (variable.Variable, error) {
	v := args[0]
	switch v.Kind() {
	case variable.KindNumber:
		return v, nil
	case variable.KindString:
		return variable.NumberFromString(v.AsString())
	case variable.KindBool:
		if v.AsBool() {
			return variable.NumberFromInt(1), nil
		}
		return variable.NumberFromInt(0), nil
	default:
		return variable.Null, fmt.Errorf("cannot convert %s to number", v.Kind())
	}
}

func fnToBoolFn(args []variable.Variable) (variable.Variable, error) {
	v := args[0]
	switch v.Kind() {
	case variable.KindBool:
		return v, nil
	case variable.KindNumber:
		return variable.Bool(!v.AsNumber().IsZero()), nil
	case variable.KindString:
		return variable.Bool(v.AsString() == "true"), nil
	case variable.KindNull:
		return variable.Bool(false), nil
	default:
		return variable.Bool(true), nil
	}
}

func fnType(args []variable.Variable) (variable.Variable, error) {
	return variable.String(args[0].Kind().String()), nil
}

func fnKeys(args []variable.Variable) (variable.Variable, error) {
	keys := args[0].ObjectKeys()
	out := make([]variable.Variable, len(keys))
	for i, k := range keys {
		out[i] = variable.String(k)
	}
	return variable.NewArray(out...), nil
}

func fnValues(args []variable.Variable) (variable.Variable, error) {
	keys := args[0].ObjectKeys()
	out := make([]variable.Variable, len(keys))
	for i, k := range keys {
		v, _ := args[0].ObjectGet(k)
		out[i] = v
	}
	return variable.NewArray(out...), nil
}

const dateLayout = "2006-01-02"
const timeLayout = "15:04:05"
const rfc3339NoZone = "2006-01-02T15:04:05"

func parseFlexibleTime(s string) (time.Time, error) {
	layouts := []string{time.RFC3339, rfc3339NoZone, dateLayout, timeLayout}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

func fnDate(args []variable.Variable) (variable.Variable, error) {
	t, err := parseFlexibleTime(args[0].AsString())
	if err != nil {
		return variable.Null, err
	}
	return variable.String(t.Format(dateLayout)), nil
}

func fnTime(args []variable.Variable) (variable.Variable, error) {
	t, err := parseFlexibleTime(args[0].AsString())
	if err != nil {
		return variable.Null, err
	}
	return variable.String(t.Format(timeLayout)), nil
}

// fnDuration parses a Go-syntax duration ("1h30m") and renders it in the
// descending y/w/d/h/m/s/ms/us/ns canonical form the teacher's duration
// type uses, rather than Go's native (and coarser) String() output.
func fnDuration(args []variable.Variable) (variable.Variable, error) {
	d, err := time.ParseDuration(args[0].AsString())
	if err != nil {
		return variable.Null, err
	}
	return variable.String(canonicalDuration(d)), nil
}

func canonicalDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	neg := d < 0
	if neg {
		d = -d
	}
	units := []struct {
		suffix string
		size   time.Duration
	}{
		{"y", 365 * 24 * time.Hour}, {"w", 7 * 24 * time.Hour}, {"d", 24 * time.Hour},
		{"h", time.Hour}, {"m", time.Minute}, {"s", time.Second},
		{"ms", time.Millisecond}, {"us", time.Microsecond}, {"ns", time.Nanosecond},
	}
	var b strings.Builder
	remaining := d
	for _, u := range units {
		if remaining < u.size {
			continue
		}
		count := remaining / u.size
		remaining -= count * u.size
		fmt.Fprintf(&b, "%d%s", count, u.suffix)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	return out
}

func fnYear(args []variable.Variable) (variable.Variable, error) {
	t, err := parseFlexibleTime(args[0].AsString())
	if err != nil {
		return variable.Null, err
	}
	return variable.NumberFromInt(int64(t.Year())), nil
}

func fnDayOfWeek(args []variable.Variable) (variable.Variable, error) {
	t, err := parseFlexibleTime(args[0].AsString())
	if err != nil {
		return variable.Null, err
	}
	return variable.String(t.Weekday().String()), nil
}
