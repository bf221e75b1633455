package supabase

import (
	"fmt"
	"strings"

	"github.com/supabase-community/supabase-go"
)

// NewClient builds the Supabase client used for object storage. Only the
// service key is accepted since uploads bypass row level security.
func NewClient(supabaseURL, serviceKey string) (*supabase.Client, error) {
	client, err := supabase.NewClient(strings.TrimSuffix(supabaseURL, "/"), serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return client, nil
}
