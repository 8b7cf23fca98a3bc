// Package redisstore implements the stampauth UserStore on Redis. Records are
// stored as JSON blobs keyed by user id with a lowercase email index key;
// updates run under WATCH so a concurrent writer surfaces as a version
// conflict instead of a lost write.
package redisstore
