// Package mqtt connects the controller to its MQTT broker.
//
// The broker is the integration surface for everything that is not the
// built-in web UI: the controller publishes retained output state and
// input readings, accepts output commands on a command topic, and
// maintains an online/offline status with a Last Will message so
// supervisors can tell a crash from a graceful shutdown.
//
// The Client wraps paho.mqtt.golang with automatic reconnection,
// subscription restoration after reconnect, and panic recovery around
// message handlers. Topic names come from the Topics builder:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.AllOutputCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        // parse and submit to the output dispatcher
//	        return nil
//	    })
package mqtt
