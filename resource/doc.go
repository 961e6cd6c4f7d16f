// Package resource provides query.ResourceAPI and MutationAPI implementations.
//
// HTTPClient talks to a REST collection. List requests are
//
//	GET {base}/{path}?search=&limit=&page=&field=&order=
//
// and must answer {"items": [...], "total": n} as JSON or msgpack, picked by
// Content-Type. Transport failures become query.NetworkError, non-2xx statuses
// query.ServerError and undecodable bodies query.MalformedResponseError. An
// optional gobreaker circuit breaker fails fast while the remote is down.
//
// RepositoryResource serves the same contract from a go-repository-bun
// repository, translating list parameters into bun select criteria.
package resource
