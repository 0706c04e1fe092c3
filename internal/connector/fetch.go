package connector

import (
	"slices"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/pkg/errors"
)

// RawMessage is an unparsed message tagged with its origin. It lives only for
// the duration of one decode and is never persisted.
type RawMessage struct {
	Folder string
	UID    uint32
	Raw    []byte
}

// selectReadOnly opens a folder without any chance of mutating mailbox state.
func selectReadOnly(client *imapclient.Client, folder string) (*imap.SelectData, error) {
	data, err := client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, errors.Wrapf(err, "select %s", folder)
	}
	return data, nil
}

// searchUIDs enumerates every UID in the currently selected folder in
// ascending numeric order.
func searchUIDs(client *imapclient.Client) ([]uint32, error) {
	data, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, errors.Wrap(err, "uid search")
	}

	uids := data.AllUIDs()
	out := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		out = append(out, uint32(uid))
	}
	// UIDs are compared as integers; server ordering is not guaranteed.
	slices.Sort(out)
	return out, nil
}

// filterUIDs keeps UIDs strictly above the cursor.
func filterUIDs(uids []uint32, after uint32) []uint32 {
	var out []uint32
	for _, uid := range uids {
		if uid > after {
			out = append(out, uid)
		}
	}
	return out
}

// fetchRaw retrieves one message's full raw content. BODY.PEEK keeps the
// \Seen flag untouched.
func fetchRaw(client *imapclient.Client, folder string, uid uint32) (RawMessage, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	fetchOptions := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}

	buffers, err := client.Fetch(imap.UIDSetNum(imap.UID(uid)), fetchOptions).Collect()
	if err != nil {
		return RawMessage{}, errors.Wrapf(err, "fetch uid %d", uid)
	}
	if len(buffers) == 0 {
		return RawMessage{}, errors.Errorf("uid %d not found", uid)
	}

	body := buffers[0].FindBodySection(section)
	if body == nil {
		return RawMessage{}, errors.Errorf("uid %d returned no body section", uid)
	}

	return RawMessage{
		Folder: folder,
		UID:    uid,
		Raw:    append([]byte(nil), body...),
	}, nil
}

// listFolders returns the names of every folder the server advertises, in
// server listing order.
func listFolders(client *imapclient.Client) ([]string, error) {
	data, err := client.List("", "*", nil).Collect()
	if err != nil {
		return nil, errors.Wrap(err, "list folders")
	}

	folders := make([]string, 0, len(data))
	for _, mb := range data {
		folders = append(folders, mb.Mailbox)
	}
	return folders, nil
}
