package cache

type hitResult[T any] struct {
	data    T
	valid   bool
	claimed bool
}

// claimEntry is a stored value, or a claim placeholder while the value is being created
type claimEntry[T any] struct {
	data  T
	valid bool
}

// Cache is a claim-based cache used by GetOrCreate to de-duplicate concurrent work per key
type Cache[T any] interface {
	getOrClaim(key string) hitResult[T]
	set(key string, data T)
	delete(key string)
	wait()
}
