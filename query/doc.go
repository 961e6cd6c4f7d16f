// Package query keeps a paginated, searchable and sortable list in sync with a
// remote resource.
//
// # Overview
//
// A Coordinator owns the fetching side for one resource family: it derives a
// cache key from ListParameters, serves fresh pages from a cache.CacheService,
// and shares one in-flight request per key between every observation waiting
// on it. An Observation binds a ParameterSource (usually a Params value) to the
// coordinator and publishes a QueryResult after every change.
//
//	store, _ := cache.NewCacheService(cache.DefaultConfig())
//	students, _ := query.NewCoordinator[Student](api, store,
//		query.WithStaleTime(30*time.Second),
//	)
//
//	params := query.NewParams(query.ListParameters{Page: 1, Limit: 10})
//	obs := students.Observe(ctx, params)
//	defer obs.Close()
//
//	params.SetPage(2) // previous page stays visible, IsPlaceholderData is set
//
//	// after a create, update or delete of a student
//	students.Invalidate(ctx)
//
// # Ordering
//
// Every parameter change issues a new request. A response is applied only when
// it answers the latest request of the observation, so a slow response for an
// older parameter set can never replace a newer one. A request no observation
// waits for anymore is cancelled.
//
// # Errors
//
// Fetch failures are reported on QueryResult.Error and classified by KindOf as
// network, server or malformed response errors. A failed refetch of the key
// already on screen keeps its data; a failure on a new key clears it.
package query
