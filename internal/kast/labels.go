package kast

// Builtin symbol labels. Infix operators follow the _op_ convention so that
// App.String prints them infix.
const (
	LabelAndBool = "_andBool_"
	LabelOrBool  = "_orBool_"
	LabelNotBool = "notBool_"

	LabelEqK   = "_==K_"
	LabelNeK   = "_=/=K_"
	LabelEqInt = "_==Int_"
	LabelNeInt = "_=/=Int_"

	LabelPlusInt  = "_+Int_"
	LabelMinusInt = "_-Int_"
	LabelTimesInt = "_*Int_"
	LabelDivInt   = "_/Int_"
	LabelModInt   = "_%Int_"

	LabelLtInt = "_<Int_"
	LabelLeInt = "_<=Int_"
	LabelGtInt = "_>Int_"
	LabelGeInt = "_>=Int_"
)

var builtinSorts = map[string]Production{
	LabelAndBool:  {Args: []Sort{SortBool, SortBool}, Sort: SortBool, Function: true},
	LabelOrBool:   {Args: []Sort{SortBool, SortBool}, Sort: SortBool, Function: true},
	LabelNotBool:  {Args: []Sort{SortBool}, Sort: SortBool, Function: true},
	LabelEqK:      {Args: []Sort{SortK, SortK}, Sort: SortBool, Function: true},
	LabelNeK:      {Args: []Sort{SortK, SortK}, Sort: SortBool, Function: true},
	LabelEqInt:    {Args: []Sort{SortInt, SortInt}, Sort: SortBool, Function: true},
	LabelNeInt:    {Args: []Sort{SortInt, SortInt}, Sort: SortBool, Function: true},
	LabelPlusInt:  {Args: []Sort{SortInt, SortInt}, Sort: SortInt, Function: true},
	LabelMinusInt: {Args: []Sort{SortInt, SortInt}, Sort: SortInt, Function: true},
	LabelTimesInt: {Args: []Sort{SortInt, SortInt}, Sort: SortInt, Function: true},
	LabelDivInt:   {Args: []Sort{SortInt, SortInt}, Sort: SortInt, Function: true},
	LabelModInt:   {Args: []Sort{SortInt, SortInt}, Sort: SortInt, Function: true},
	LabelLtInt:    {Args: []Sort{SortInt, SortInt}, Sort: SortBool, Function: true},
	LabelLeInt:    {Args: []Sort{SortInt, SortInt}, Sort: SortBool, Function: true},
	LabelGtInt:    {Args: []Sort{SortInt, SortInt}, Sort: SortBool, Function: true},
	LabelGeInt:    {Args: []Sort{SortInt, SortInt}, Sort: SortBool, Function: true},
}

// IsBuiltin reports whether label is one of the builtin operators.
func IsBuiltin(label string) bool {
	_, ok := builtinSorts[label]
	return ok
}
