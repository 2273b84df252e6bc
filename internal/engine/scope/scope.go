// Package scope maps Checkstyle rule names to the syntax scope whose shape
// identifies an issue across edits.
package scope

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the source scope a fingerprint is taken from.
type Kind int

const (
	KindBlock Kind = iota
	KindMethod
	KindFile
	KindClass
	KindMethodOrClass
	KindFieldGroup
	KindNamePackage
)

// DefaultBlockDepth is the number of sibling statements taken on each side
// for Block scopes, including every rule not in the table.
const DefaultBlockDepth = 3

func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindMethod:
		return "method"
	case KindFile:
		return "file"
	case KindClass:
		return "class"
	case KindMethodOrClass:
		return "method_or_class"
	case KindFieldGroup:
		return "field_group"
	case KindNamePackage:
		return "name_package"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Kinds lists every scope kind in table order.
var Kinds = []Kind{KindMethod, KindBlock, KindFile, KindClass, KindMethodOrClass, KindFieldGroup, KindNamePackage}

// Scope is a classified scope. Depth is only meaningful for KindBlock.
type Scope struct {
	Kind  Kind
	Depth int
}

func (s Scope) String() string {
	if s.Kind == KindBlock {
		return fmt.Sprintf("block(%d)", s.Depth)
	}
	return s.Kind.String()
}

var (
	methodRules = []string{"AnonInnerLength", "CovariantEquals", "EqualsAvoidNull",
		"EqualsHashCode", "HiddenField", "JavadocMethod", "MethodLength", "MethodName", "MethodParamPad",
		"MethodTypeParameterName", "ParameterAssignment", "ParameterName", "ParameterNumber", "SuperClone",
		"SuperFinalize", "ThrowsCount"}
	blockRules = []string{"ArrayTypeStyle", "AvoidNestedBlocks",
		"BooleanExpressionComplexity", "DefaultComesLast", "EmptyBlock", "EmptyForIteratorPad", "EmptyStatement",
		"FallThrough", "GenericWhitespace", "IllegalCatch", "IllegalThrows", "InnerAssignment", "JavaNCSS",
		"LeftCurly", "LocalFinalVariableName", "LocalVariableName", "MissingSwitchDefault",
		"ModifiedControlVariable", "MultipleVariableDeclarations", "NeedBraces", "NestedForDepth", "NestedIfDepth",
		"NestedTryDepth", "NoWhitespaceAfter", "NoWhitespaceBefore", "NPathComplexity", "OneStatementPerLine",
		"OperatorWrap", "ParenPad", "RightCurly", "SimplifyBooleanExpression", "SimplifyBooleanReturn",
		"StringLiteralEquality", "TypecastParenPad", "UnnecessaryParentheses", "UpperEll", "WhitespaceAfter",
		"WhitespaceAround"}
	fileRules = []string{"ClassDataAbstractionCoupling", "ClassFanOutComplexity",
		"FileLength", "IllegalImport", "InterfaceIsType", "OuterTypeFilename", "PackageDeclaration"}
	classRules = []string{"ClassTypeParameterName", "FinalClass",
		"HideUtilityClassConstructor", "InnerTypeLast", "JavadocType", "JUnitTestCase", "MultipleStringLiterals",
		"MutableException", "TypeName"}
	methodOrClassRules = []string{"AnnotationUseStyle", "FileTabCharacter",
		"JavadocStyle", "MissingDeprecated", "ModifierOrder", "RedundantModifier", "VisibilityModifier"}
	fieldGroupRules  = []string{"ConstantName", "ExplicitInitialization", "JavadocVariable", "MemberName", "StaticVariableName"}
	namePackageRules = []string{"PackageName"}
)

// Table is the immutable rule → scope lookup. It is safe for concurrent use.
type Table struct {
	byRule map[string]Scope
}

// NewTable builds the table of known Checkstyle rules.
func NewTable() *Table {
	t := &Table{byRule: make(map[string]Scope, 90)}
	t.register(Scope{Kind: KindMethod}, methodRules)
	t.register(Scope{Kind: KindBlock, Depth: DefaultBlockDepth}, blockRules)
	t.register(Scope{Kind: KindFile}, fileRules)
	t.register(Scope{Kind: KindClass}, classRules)
	t.register(Scope{Kind: KindMethodOrClass}, methodOrClassRules)
	t.register(Scope{Kind: KindFieldGroup}, fieldGroupRules)
	t.register(Scope{Kind: KindNamePackage}, namePackageRules)
	return t
}

func (t *Table) register(s Scope, rules []string) {
	for _, rule := range rules {
		// first registration wins, matching the lookup order of the buckets
		if _, ok := t.byRule[rule]; !ok {
			t.byRule[rule] = s
		}
	}
}

// Classify returns the scope for a rule type name. A trailing "Check" is
// ignored; unknown rules get a Block scope of DefaultBlockDepth.
func (t *Table) Classify(ruleType string) Scope {
	name := strings.TrimSuffix(strings.TrimSpace(ruleType), "Check")
	if s, ok := t.byRule[name]; ok {
		return s
	}
	return Scope{Kind: KindBlock, Depth: DefaultBlockDepth}
}

// Known reports whether the rule has an explicit table entry.
func (t *Table) Known(ruleType string) bool {
	_, ok := t.byRule[strings.TrimSuffix(strings.TrimSpace(ruleType), "Check")]
	return ok
}

// Rules returns the sorted rule names registered for kind.
func (t *Table) Rules(kind Kind) []string {
	out := make([]string, 0)
	for rule, s := range t.byRule {
		if s.Kind == kind {
			out = append(out, rule)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of known rules.
func (t *Table) Len() int {
	return len(t.byRule)
}
