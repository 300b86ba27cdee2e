package events

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/rotblauer/trackfix/types/run"
)

// RunFeed is emitted for every completed correction run,
// whether or not it was stored.
var RunFeed = event.FeedOf[*run.Run]{}
