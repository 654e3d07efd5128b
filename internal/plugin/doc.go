// Package plugin defines the data model shared by every stage of the compiler:
// Definition (kind, name, parameters, ensure), ParamSpec, the validated Params
// map, and the typed errors returned by lookup and validation.
//
// Errors:
//   - UnknownPluginKindError, MissingRequiredParameterError,
//     UnknownParameterError, TypeMismatchError, InvalidDefinitionError,
//     each matching its Err* sentinel through errors.Is
//   - ValidationError aggregates all violations found for one definition and
//     exposes them through Unwrap() []error
package plugin
