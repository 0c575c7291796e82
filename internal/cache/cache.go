package cache

import "time"

// NoExpiration keeps an entry until it is deleted
const NoExpiration time.Duration = -1

// Cache defines the interface for in-process blob caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	Len() int
}

// BlobKey namespaces a handle id for storage in a Cache
func BlobKey(handle string) string {
	return "clauseguard:v1:blob:" + handle
}

// RobotsKey namespaces a host's robots.txt body
func RobotsKey(host string) string {
	return "clauseguard:v1:robots:" + host
}
