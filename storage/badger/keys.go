package badger

import (
	"fmt"
)

// Key prefixes for different data types
const (
	databasePrefix   = "docdb"
	collectionPrefix = "doccol"
	documentPrefix   = "doc"
	containerPrefix  = "objcon"
	objectPrefix     = "obj"
	objectMetaPrefix = "objmeta"
)

// makeDatabaseKey generates the marker key of a provisioned database.
func makeDatabaseKey(database string) []byte {
	return []byte(fmt.Sprintf("%s:%s", databasePrefix, database))
}

// makeCollectionKey generates the marker key of a provisioned collection.
// Format: prefix:database/collection
func makeCollectionKey(database, collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s/%s", collectionPrefix, database, collection))
}

// makeCollectionPrefix generates the prefix shared by every document of a
// collection. Format: prefix:database/collection:
func makeCollectionPrefix(database, collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s/%s:", documentPrefix, database, collection))
}

// makePartitionPrefix generates the prefix shared by every document of one
// partition. Format: prefix:database/collection:partition:
func makePartitionPrefix(database, collection, partition string) []byte {
	return []byte(fmt.Sprintf("%s:%s/%s:%s:", documentPrefix, database, collection, partition))
}

// makeDocumentKey generates the key of one document.
// Format: prefix:database/collection:partition:id
// Partition values are dates and never contain ':'.
func makeDocumentKey(database, collection, partition, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s/%s:%s:%s", documentPrefix, database, collection, partition, id))
}

// makeContainerKey generates the marker key of a provisioned container.
func makeContainerKey(container string) []byte {
	return []byte(fmt.Sprintf("%s:%s", containerPrefix, container))
}

// makeObjectPrefix generates the prefix shared by every object body of a
// container. Format: prefix:container/
func makeObjectPrefix(container string) []byte {
	return []byte(fmt.Sprintf("%s:%s/", objectPrefix, container))
}

// makeObjectKey generates the key of an object body.
// Format: prefix:container/name
func makeObjectKey(container, name string) []byte {
	return []byte(fmt.Sprintf("%s:%s/%s", objectPrefix, container, name))
}

// makeObjectMetaKey generates the key of an object's metadata record.
// Format: prefix:container/name
func makeObjectMetaKey(container, name string) []byte {
	return []byte(fmt.Sprintf("%s:%s/%s", objectMetaPrefix, container, name))
}
