// Package kernelerr implements the category:code structured error taxonomy
// shared by the gate, router, and agent turn loop, so every layer can log
// and ledger-record errors the same way.
package kernelerr

import "fmt"

// Category groups related error codes.
type Category string

const (
	CategoryDeny   Category = "deny"
	CategorySchema Category = "schema"
	CategoryBudget Category = "budget"
	CategoryPerm   Category = "perm"
	CategoryTool   Category = "tool"
	CategoryLLM    Category = "llm"
)

// Error is a category:code error with an optional human-readable detail.
type Error struct {
	Category Category
	Code     string
	Detail   string
}

func New(cat Category, code, detail string) *Error {
	return &Error{Category: cat, Code: code, Detail: detail}
}

// CodeString renders the "category:code" form used in ledger entries.
func (e *Error) CodeString() string {
	return string(e.Category) + ":" + e.Code
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.CodeString()
	}
	return fmt.Sprintf("%s: %s", e.CodeString(), e.Detail)
}

// Common constructors matching spec.md §7's named cases.
func Deny(code, detail string) *Error   { return New(CategoryDeny, code, detail) }
func Schema(code, detail string) *Error { return New(CategorySchema, code, detail) }
func Budget(code, detail string) *Error { return New(CategoryBudget, code, detail) }
func Perm(code, detail string) *Error   { return New(CategoryPerm, code, detail) }
func Tool(code, detail string) *Error   { return New(CategoryTool, code, detail) }
func LLM(code, detail string) *Error    { return New(CategoryLLM, code, detail) }
