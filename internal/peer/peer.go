package peer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

const (
	DataChannelLabel = "pairlink"

	// MaxPayload keeps a transfer within one SCTP message.
	MaxPayload = 65535

	ackMessage    = "ack"
	readyMessage  = "ready"
	lingerTimeout = 5 * time.Second
)

var ErrPayloadTooLarge = errors.New("payload too large")

// Options configure one side of a transfer. Zero values are usable.
type Options struct {
	// API builds peer connections. Defaults to NewAPI().
	API        *webrtc.API
	ICEServers []webrtc.ICEServer
	Dialer     *websocket.Dialer
	Header     http.Header
	Logger     *zap.Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.Logger == nil {
		o.Logger = zap.L()
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	if o.API == nil {
		api, err := NewAPI(o.Logger)
		if err != nil {
			return o, err
		}
		o.API = api
	}
	return o, nil
}

// NewAPI returns a webrtc API that logs through log. Each tune func may
// adjust the setting engine, e.g. to run on a virtual network.
func NewAPI(log *zap.Logger, tune ...func(*webrtc.SettingEngine)) (*webrtc.API, error) {
	se := webrtc.SettingEngine{LoggerFactory: LoggerFactory{Log: log}}
	for _, fn := range tune {
		fn(&se)
	}

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	return webrtc.NewAPI(
		webrtc.WithSettingEngine(se),
		webrtc.WithMediaEngine(mediaEngine),
	), nil
}

// Send joins the room at signalURL as the sender, waits for a receiver and
// delivers payload to it over a data channel.
func Send(ctx context.Context, signalURL string, payload []byte, opts Options) (err error) {
	if len(payload) > MaxPayload {
		return ErrPayloadTooLarge
	}
	if opts, err = opts.withDefaults(); err != nil {
		return
	}
	log := opts.Logger.With(zap.String("role", "sender"))

	sc, err := dialSignal(ctx, opts.Dialer, signalURL, opts.Header, log)
	if err != nil {
		return
	}
	defer sc.close()

	log.Info("waiting for receiver")
	if _, err = sc.expect(ctx, readyMessage); err != nil {
		return fmt.Errorf("wait for receiver: %w", err)
	}

	pc, err := opts.API.NewPeerConnection(webrtc.Configuration{ICEServers: opts.ICEServers})
	if err != nil {
		return fmt.Errorf("new peer connection: %w", err)
	}
	defer func() { _ = pc.Close() }()

	dc, err := pc.CreateDataChannel(DataChannelLabel, nil)
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}

	opened := make(chan struct{})
	acked := make(chan struct{}, 1)
	dc.OnOpen(func() { close(opened) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString && string(msg.Data) == ackMessage {
			select {
			case acked <- struct{}{}:
			default:
			}
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err = describe(ctx, sc, pc, offer); err != nil {
		return
	}

	answer, err := sc.expect(ctx, webrtc.SDPTypeAnswer.String())
	if err != nil {
		return fmt.Errorf("wait for answer: %w", err)
	}
	if err = pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer.SDP}); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}

	select {
	case <-opened:
	case <-ctx.Done():
		return fmt.Errorf("wait for data channel: %w", ctx.Err())
	}

	if err = dc.Send(payload); err != nil {
		return fmt.Errorf("send payload: %w", err)
	}

	select {
	case <-acked:
	case <-ctx.Done():
		return fmt.Errorf("wait for acknowledgement: %w", ctx.Err())
	}

	log.Info("payload delivered", zap.Int("bytes", len(payload)))
	return nil
}

// Receive joins the room at signalURL as the receiver and returns the
// payload the sender delivers.
func Receive(ctx context.Context, signalURL string, opts Options) (payload []byte, err error) {
	if opts, err = opts.withDefaults(); err != nil {
		return
	}
	log := opts.Logger.With(zap.String("role", "receiver"))

	sc, err := dialSignal(ctx, opts.Dialer, signalURL, opts.Header, log)
	if err != nil {
		return
	}
	defer sc.close()

	pc, err := opts.API.NewPeerConnection(webrtc.Configuration{ICEServers: opts.ICEServers})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	defer func() { _ = pc.Close() }()

	received := make(chan []byte, 1)
	closed := make(chan struct{})
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != DataChannelLabel {
			return
		}
		dc.OnClose(func() { close(closed) })
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if err := dc.SendText(ackMessage); err != nil {
				log.Warn("failed to acknowledge payload", zap.Error(err))
			}
			select {
			case received <- msg.Data:
			default:
			}
		})
	})

	if err = sc.send(envelope{Type: readyMessage}); err != nil {
		return nil, fmt.Errorf("announce receiver: %w", err)
	}

	offer, err := sc.expect(ctx, webrtc.SDPTypeOffer.String())
	if err != nil {
		return nil, fmt.Errorf("wait for offer: %w", err)
	}
	if err = pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer.SDP}); err != nil {
		return nil, fmt.Errorf("set remote offer: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err = describe(ctx, sc, pc, answer); err != nil {
		return
	}

	select {
	case payload = <-received:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for payload: %w", ctx.Err())
	}
	log.Info("payload received", zap.Int("bytes", len(payload)))

	// Give the acknowledgement time to leave before tearing down.
	select {
	case <-closed:
	case <-sc.done:
	case <-time.After(lingerTimeout):
	case <-ctx.Done():
	}
	return payload, nil
}

// describe applies a local description, waits for ICE gathering to finish
// and sends the complete description to the peer.
func describe(ctx context.Context, sc *signalConn, pc *webrtc.PeerConnection, desc webrtc.SessionDescription) error {
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("set local %s: %w", desc.Type, err)
	}

	select {
	case <-gathered:
	case <-ctx.Done():
		return fmt.Errorf("gather candidates: %w", ctx.Err())
	}

	local := pc.LocalDescription()
	return sc.send(envelope{Type: local.Type.String(), SDP: local.SDP})
}
