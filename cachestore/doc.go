// Component for caching arbitrary data (as JSON strings) with a fixed TTL and purging.
//
// Includes an interface and implementations using redis and in-process memory.
//
// The link resolver uses this to remember where shortened links end up, so repeated checks of the same post don't re-fetch the redirect chain.
package cachestore
