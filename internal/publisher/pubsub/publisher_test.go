package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "websight-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublishSendsJSONWithAttributes(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)
	_, err := client.CreateTopic(ctx, "probe-records")
	require.NoError(t, err)

	pub := New(client, map[string]string{"session_id": "session-42"})
	defer pub.Close()

	payload := map[string]string{"url": "https://example.com", "server_location": "Paris, France"}
	id, err := pub.Publish(ctx, "probe-records", payload)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "session-42", msgs[0].Attributes["session_id"])
	require.Equal(t, "application/json", msgs[0].Attributes["content_type"])

	var got map[string]string
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, payload, got)
}

func TestPublishReusesTopicHandle(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)
	_, err := client.CreateTopic(ctx, "probe-records")
	require.NoError(t, err)

	pub := New(client, nil)
	defer pub.Close()
	for i := 0; i < 3; i++ {
		_, err := pub.Publish(ctx, "probe-records", map[string]int{"n": i})
		require.NoError(t, err)
	}
	require.Len(t, pub.topics, 1)
	require.Len(t, srv.Messages(), 3)
}

func TestPublishMissingTopicFails(t *testing.T) {
	client, _ := newTestClient(t)
	pub := New(client, nil)
	defer pub.Close()

	_, err := pub.Publish(context.Background(), "does-not-exist", map[string]string{})
	require.Error(t, err)
}

func TestPublishValidatesInput(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil).Publish(context.Background(), "t", "x")
	require.ErrorContains(t, err, "not configured")

	client, _ := newTestClient(t)
	pub := New(client, nil)
	_, err = pub.Publish(context.Background(), "", "x")
	require.ErrorContains(t, err, "topic is required")

	_, err = pub.Publish(context.Background(), "t", func() {})
	require.ErrorContains(t, err, "marshal payload")
}

func TestCarrierRoundTrip(t *testing.T) {
	t.Parallel()

	c := &pubsubCarrier{attrs: map[string]string{}}
	c.Set("traceparent", "00-abc-def-01")
	require.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	require.Equal(t, []string{"traceparent"}, c.Keys())
}
