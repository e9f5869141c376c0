package ast

// Kind is the closed enumeration of syntactic categories the analysis
// engine distinguishes. Constructs outside this set map to KindOther with
// their concrete syntax type preserved on the node.
type Kind uint8

const (
	KindOther Kind = iota
	KindProgram
	KindIdentifierReference
	KindIdentifierBinding
	KindPropertyIdentifier
	KindMemberExpression
	KindComputedMemberExpression
	KindCallExpression
	KindNewExpression
	KindStringLiteral
	KindNumericLiteral
	KindTemplateString
	KindFunctionExpression
	KindArrowFunction
	KindSpreadElement
	KindDebuggerStatement

	// KindCount is the number of kinds; used to size interest tables.
	KindCount
)

var kindNames = [KindCount]string{
	KindOther:                    "other",
	KindProgram:                  "program",
	KindIdentifierReference:      "identifier-reference",
	KindIdentifierBinding:        "identifier-binding",
	KindPropertyIdentifier:       "property-identifier",
	KindMemberExpression:         "member-expression",
	KindComputedMemberExpression: "computed-member-expression",
	KindCallExpression:           "call-expression",
	KindNewExpression:            "new-expression",
	KindStringLiteral:            "string-literal",
	KindNumericLiteral:           "numeric-literal",
	KindTemplateString:           "template-string",
	KindFunctionExpression:       "function-expression",
	KindArrowFunction:            "arrow-function",
	KindSpreadElement:            "spread-element",
	KindDebuggerStatement:        "debugger-statement",
}

func (k Kind) String() string {
	if k < KindCount {
		return kindNames[k]
	}
	return "other"
}

// KindByName resolves a kind from its string form. Used by scripted rules,
// which refer to kinds by name.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindOther, false
}
