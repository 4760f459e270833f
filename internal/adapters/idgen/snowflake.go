package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// SnowflakeOrderNumbers issues order numbers from a snowflake node. Numbers are unique
// per node id and sort by creation time.
type SnowflakeOrderNumbers struct {
	node *snowflake.Node
}

// NewSnowflakeOrderNumbers expects a node id in [0, 1023], unique per running process.
func NewSnowflakeOrderNumbers(nodeID int64) (*SnowflakeOrderNumbers, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeOrderNumbers{node: node}, nil
}

func (g *SnowflakeOrderNumbers) NextOrderNumber() string {
	return g.node.Generate().String()
}
