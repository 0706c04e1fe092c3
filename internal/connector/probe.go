package connector

import (
	"context"
	"slices"

	"github.com/emersion/go-imap/v2"
)

// ServerInfo summarizes a successful connection test.
type ServerInfo struct {
	Host          string   `json:"host"`
	Capabilities  []string `json:"capabilities"`
	Folders       []string `json:"folders"`
	InboxMessages uint32   `json:"inbox_messages"`
}

// TestConnection dials, authenticates and gathers basic server facts without
// mutating any mailbox state. It reuses the pooled connection when one is
// already live.
func (c *Connector) TestConnection(ctx context.Context) (*ServerInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := c.session.Client()
	if err != nil {
		return nil, err
	}

	info := &ServerInfo{Host: c.host}

	for cap := range client.Caps() {
		info.Capabilities = append(info.Capabilities, string(cap))
	}
	slices.Sort(info.Capabilities)

	folders, err := listFolders(client)
	if err != nil {
		return nil, &ConnectionError{Op: "list", Err: err}
	}
	info.Folders = folders

	// Message count is best-effort; some servers restrict SELECT per folder.
	if slices.Contains(folders, defaultFolder) {
		if data, err := selectReadOnly(client, defaultFolder); err == nil {
			info.InboxMessages = data.NumMessages
		}
	}

	return info, nil
}

// ListFolders returns every folder the server advertises, unfiltered.
func (c *Connector) ListFolders(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := c.session.Client()
	if err != nil {
		return nil, err
	}

	folders, err := listFolders(client)
	if err != nil {
		return nil, &ConnectionError{Op: "list", Err: err}
	}
	return folders, nil
}

// CountMessages totals the messages across the given folders via STATUS.
// Folders that fail to report are counted as zero.
func (c *Connector) CountMessages(ctx context.Context, folders []string) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	client, err := c.session.Client()
	if err != nil {
		return 0, err
	}

	var total uint32
	for _, folder := range folders {
		data, err := client.Status(folder, &imap.StatusOptions{NumMessages: true}).Wait()
		if err != nil || data.NumMessages == nil {
			continue
		}
		total += *data.NumMessages
	}
	return total, nil
}

// ResolvedFolders lists the folders a sync run would visit right now.
func (c *Connector) ResolvedFolders(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := c.session.Client()
	if err != nil {
		return nil, err
	}

	serverFolders, err := listFolders(client)
	if err != nil {
		return nil, &ConnectionError{Op: "list", Err: err}
	}

	return ResolveFolders(serverFolders, c.folders, c.excludeFolders), nil
}
