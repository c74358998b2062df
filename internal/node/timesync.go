package node

import (
	"time"

	"github.com/bluenviron/goroslib/v2/pkg/msgs/std_msgs"

	"github.com/relabs-tech/osdk_bridge/internal/msgs"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
)

func (n *Node) timeSyncHandlers() osdk.TimeSyncHandlers {
	return osdk.TimeSyncHandlers{
		NMEA:        n.onNMEA,
		GPSUTCTime:  n.onGPSUTCTime,
		FCTimeInUTC: n.onFCTimeInUTC,
		PPSSource:   n.onPPSSource,
	}
}

func (n *Node) onNMEA(sentence string, received time.Time) {
	n.publish(TopicTimeSyncNMEA, &msgs.Sentence{
		Header:   header(received, FrameNMEA),
		Sentence: sentence,
	})
}

func (n *Node) onGPSUTCTime(utc string, fcTimestamp uint32) {
	n.publish(TopicTimeSyncGPSUTC, &msgs.GPSUTC{
		Stamp:     n.now(),
		Timestamp: utc,
	})
}

func (n *Node) onFCTimeInUTC(t osdk.FCTimeInUTC) {
	n.publish(TopicTimeSyncFCTimeUTC, &msgs.FCTimeInUTC{
		FCTimestampUs: t.FCTimestampUs,
		FCUTCHHMMSS:   t.UTCHHMMSS,
		FCUTCYYMMDD:   t.UTCYYMMDD,
	})
}

func (n *Node) onPPSSource(src osdk.PPSSource) {
	n.publish(TopicTimeSyncPPSSource, &std_msgs.String{Data: string(src)})
}

func (n *Node) onMobileData(data []byte) {
	n.publish(TopicFromMobileData, &msgs.MobileData{Data: append([]uint8(nil), data...)})
}

func (n *Node) onPayloadData(data []byte) {
	n.publish(TopicFromPayloadData, &msgs.PayloadData{Data: append([]uint8(nil), data...)})
}
