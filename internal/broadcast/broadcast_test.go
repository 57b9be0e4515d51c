package broadcast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRecipient struct {
	id  int
	mu  *sync.Mutex
	got *[]any
}

func (f fakeRecipient) Send(record any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.got = append(*f.got, record)
}

func TestToSendsOnePersonalizedRecordPerRecipient(t *testing.T) {
	var mu sync.Mutex
	var got []any

	recipients := []fakeRecipient{
		{id: 0, mu: &mu, got: &got},
		{id: 1, mu: &mu, got: &got},
		{id: 2, mu: &mu, got: &got},
	}

	To(recipients, func(r fakeRecipient) any {
		return r.id * 10
	})

	require.Len(t, got, 3)
	sum := 0
	for _, v := range got {
		sum += v.(int)
	}
	require.Equal(t, 30, sum) // 0 + 10 + 20
}

func TestToWithNoRecipientsDoesNothing(t *testing.T) {
	require.NotPanics(t, func() {
		To([]fakeRecipient(nil), func(fakeRecipient) any { return nil })
	})
}
