package eventpubsub

import (
	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"tradepanel/src/eventmodels"
)

var bus EventBus.Bus

func Init() {
	bus = EventBus.New()
}

func Publish(publisherName string, topic eventmodels.EventName, event interface{}) {
	log.Debugf("[%v] Published to topic %s", publisherName, topic)

	bus.Publish(string(topic), event)
}

func PublishError(publisherName string, err error) {
	log.Error(err)

	bus.Publish(string(eventmodels.Error), err)
}

// WaitAsync blocks until all async handlers have finished.
func WaitAsync() {
	bus.WaitAsync()
}

func Subscribe(subscriberName string, topic eventmodels.EventName, callbackFn interface{}) {
	if err := bus.SubscribeAsync(string(topic), callbackFn, false); err != nil {
		log.Errorf("[%v] error: %v", subscriberName, err)
		return
	}

	log.Infof("[%v] Subscribed to topic %s", subscriberName, topic)
}
