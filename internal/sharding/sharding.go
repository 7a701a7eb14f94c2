package sharding

import (
	"fmt"
	"hash/crc32"
)

// ShardCount is the number of event partitions. A single-user list never
// needs more than a handful of consumers, so this stays small.
const ShardCount = 64

// GetShardID returns the stable partition for an entity ID.
func GetShardID(entityID string) int {
	checksum := crc32.ChecksumIEEE([]byte(entityID))
	return int(checksum % ShardCount)
}

// EventSubject returns the NATS subject a change to the entity is published on.
// Format: app.event.{shard_id}.{entity_type}.{entity_id}
func EventSubject(entityType, entityID string) string {
	return fmt.Sprintf("app.event.%d.%s.%s", GetShardID(entityID), entityType, entityID)
}
