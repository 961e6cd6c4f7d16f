// Package students is the student registry: the Student record, its form
// validation rules and a Service keeping the cached student list consistent
// with mutations.
package students
