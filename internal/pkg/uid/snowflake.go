package uid

import (
	"hash/fnv"
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
)

// NodeEnv overrides the snowflake node number (0..1023).
const NodeEnv = "TOTPGUARD_NODE_ID"

// Snowflake generates time ordered int64 ids.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator. The node number comes from NodeEnv or,
// when unset, from a hash of the hostname.
func NewSnowflake() (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeNumber())
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: node}, nil
}

func nodeNumber() int64 {
	limit := int64(1)<<snowflake.NodeBits - 1

	if v, err := strconv.ParseInt(os.Getenv(NodeEnv), 10, 64); err == nil && v >= 0 && v <= limit {
		return v
	}

	host, _ := os.Hostname()
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))

	return int64(h.Sum32()) & limit
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
