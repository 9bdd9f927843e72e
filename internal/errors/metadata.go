package errors

import "fmt"

// Constructors for the structural violations raised while defining and
// committing Api and Service metadata. Messages always name the offending
// class, method or route.

// NotAClass reports a define call on something that is not a class
func NotAClass(what string) *BaseError {
	return Newf(NotAClassErrorCode, "not a class: %s", what).
		WithSuggestion("register the type with Registry.Class before defining metadata on it")
}

// DuplicateDefinition reports two distinct definitions claiming one name
func DuplicateDefinition(kind, name string) *BaseError {
	return Newf(DuplicateDefinitionErrorCode, "duplicate %s name [%s]", kind, name).
		WithContext("kind", kind).
		WithContext("name", name)
}

// DuplicateMember reports a member declared twice on one definition
func DuplicateMember(member, owner, name string) *BaseError {
	return Newf(DuplicateMemberErrorCode, "duplicate %s [%s.%s]", member, owner, name).
		WithContext("member", member).
		WithContext("owner", owner).
		WithContext("name", name)
}

// DuplicateRoute reports a route string bound twice on one Api
func DuplicateRoute(api, route string) *BaseError {
	return Newf(DuplicateMemberErrorCode, "duplicate route [%s] on api [%s]", route, api).
		WithContext("member", "route").
		WithContext("owner", api).
		WithContext("route", route)
}

// StructuralMismatch reports a class hierarchy that breaks an invariant
func StructuralMismatch(class, format string, args ...interface{}) *BaseError {
	return New(StructuralMismatchErrorCode, fmt.Sprintf("[%s] %s", class, fmt.Sprintf(format, args...))).
		WithContext("class", class)
}

// MissingHandler reports a contract method without a handler
func MissingHandler(service, api, method string) *BaseError {
	return Newf(ContractViolationErrorCode, "service [%s] missing handler for [%s.%s]", service, api, method).
		WithContext("service", service).
		WithContext("method", method)
}

// MissingOverride reports a redeclared contract method not marked as override
func MissingOverride(service, base, method string) *BaseError {
	return Newf(ContractViolationErrorCode, "service [%s] missing override handler [%s.%s] for [%s.%s]",
		service, service, method, base, method).
		WithContext("service", service).
		WithContext("method", method).
		WithSuggestion("mark the handler with //tyx::override or use AddOverride")
}

// LoseHandler reports a handler with no corresponding contract method
func LoseHandler(service, method string) *BaseError {
	return Newf(ContractViolationErrorCode, "service [%s] lose handler on [%s]", service, method).
		WithContext("service", service).
		WithContext("method", method)
}

// Inconsistent reports cross-links that disagree with each other
func Inconsistent(format string, args ...interface{}) *BaseError {
	return Newf(ConsistencyErrorCode, format, args...)
}
