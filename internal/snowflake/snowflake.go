package snowflake

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

type Snowflake struct {
	Timestamp int64
	WorkerID  int64
	Increment int64
}

const (
	timestampLength int64 = 42                                    // 42
	timestampPos          = 64 - timestampLength                  // 22
	workerLength    int64 = 10                                    // 10
	workerPos             = timestampPos - workerLength           // 12
	incrementLength       = 64 - (timestampLength + workerLength) // 12

	maxWorkerValue    int64 = 1<<workerLength - 1
	maxIncrementValue int64 = 1<<incrementLength - 1
)

// Node hands out ids for documents created by this client. Two clients
// writing to the same database need different worker ids.
type Node struct {
	mutex         sync.Mutex
	workerID      int64
	lastTimestamp int64
	lastIncrement int64
	now           func() time.Time
}

func New(workerID int64) (*Node, error) {
	if workerID < 0 || workerID > maxWorkerValue {
		return nil, fmt.Errorf("worker ID value must be between 0 and [%d]", maxWorkerValue)
	}
	return &Node{workerID: workerID, now: time.Now}, nil
}

func (n *Node) Generate() (int64, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	timestamp := n.now().UnixMilli()
	if timestamp == n.lastTimestamp {
		n.lastIncrement += 1
		if n.lastIncrement > maxIncrementValue {
			return 0, fmt.Errorf("increment overflow after increment reached %d", n.lastIncrement)
		}
	} else {
		n.lastIncrement = 0
		n.lastTimestamp = timestamp
	}

	return timestamp<<timestampPos | n.workerID<<workerPos | n.lastIncrement, nil
}

// Next returns a fresh id in the decimal form used for document ids. When the
// increment overflows it waits for the next millisecond.
func (n *Node) Next() (string, error) {
	for i := 0; i < 3; i++ {
		id, err := n.Generate()
		if err == nil {
			return strconv.FormatInt(id, 10), nil
		}
		time.Sleep(time.Millisecond)
	}
	return "", fmt.Errorf("couldn't generate snowflake on worker [%d]", n.workerID)
}

func Extract(snowflakeId int64) Snowflake {
	return Snowflake{
		Timestamp: snowflakeId >> timestampPos,
		WorkerID:  (snowflakeId >> workerPos) & maxWorkerValue,
		Increment: snowflakeId & maxIncrementValue,
	}
}

// CreatedAt reads the creation time back out of a decimal snowflake id.
func CreatedAt(id string) (time.Time, error) {
	value, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(Extract(value).Timestamp), nil
}
