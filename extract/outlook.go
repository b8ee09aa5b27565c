package extract

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/dhcgn/msg-file-renamer/model"
)

// MAPI property ids read from the top-level message.
const (
	propSubject             = 0x0037
	propSentRepresentName   = 0x0042
	propSentRepresentEmail  = 0x0065
	propTransportHeaders    = 0x007D
	propDisplayTo           = 0x0E04
	propSenderName          = 0x0C1A
	propSenderEmail         = 0x0C1F
	propBody                = 0x1000
	propSenderSMTPAddress   = 0x5D01
	propAttachLongFilename  = 0x3707
	propAttachShortFilename = 0x3704
)

// Fixed-size property tags (id << 16 | type) in __properties_version1.0.
const (
	tagClientSubmitTime    = 0x00390040
	tagMessageDeliveryTime = 0x0E060040
)

const (
	propStreamPrefix    = "__substg1.0_"
	propertiesStream    = "__properties_version1.0"
	attachStoragePrefix = "__attach_version1.0_#"

	// The top-level property stream has a 32 byte header, entries are 16 bytes.
	topLevelPropsHeader = 32
	propEntrySize       = 16

	// 100ns intervals between 1601-01-01 and the Unix epoch.
	filetimeEpochDelta = 116444736000000000
)

var (
	utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	errNoProps   = errors.New("compound file has no message properties")
)

type outlookMessage struct {
	props       map[uint16]string
	fixed       []byte
	attachments map[string]map[uint16]string
}

func parseOutlook(data []byte) (model.Metadata, error) {
	msg, err := readOutlook(data)
	if err != nil {
		return model.Metadata{}, err
	}
	if len(msg.props) == 0 && len(msg.fixed) == 0 {
		return model.Metadata{}, errNoProps
	}

	var meta model.Metadata
	if raw, ok := msg.props[propTransportHeaders]; ok && strings.TrimSpace(raw) != "" {
		meta = headerMetadata(parseTransportHeaders(raw))
	}

	if meta.Sender.State() != model.FieldPresent {
		if sender, ok := msg.sender(); ok {
			meta.Sender = model.Present(sender)
		}
	}

	if subject, ok := msg.props[propSubject]; ok {
		meta.Subject = model.Present(subject)
	}

	if meta.SentAt.State() != model.FieldPresent {
		if t, ok := msg.submitTime(); ok {
			meta.SentAt = model.Present(t)
		}
	}

	if to, ok := msg.props[propDisplayTo]; ok {
		meta.Recipients = model.Present(to)
	}

	body, ok := msg.props[propBody]
	meta.Body = textField(body, ok && body != "")

	if names := msg.attachmentNames(); len(names) > 0 {
		meta.Attachments = model.Present(names)
	}
	return meta, nil
}

func readOutlook(data []byte) (*outlookMessage, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compound file: %w", err)
	}

	msg := &outlookMessage{
		props:       make(map[uint16]string),
		attachments: make(map[string]map[uint16]string),
	}
	for {
		entry, err := doc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("compound file entry: %w", err)
		}

		switch {
		case len(entry.Path) == 0 && entry.Name == propertiesStream:
			if msg.fixed, err = readStream(entry); err != nil {
				return nil, err
			}
		case len(entry.Path) == 0:
			if err := readProperty(entry, msg.props); err != nil {
				return nil, err
			}
		case len(entry.Path) == 1 && strings.HasPrefix(entry.Path[0], attachStoragePrefix):
			props, ok := msg.attachments[entry.Path[0]]
			if !ok {
				props = make(map[uint16]string)
				msg.attachments[entry.Path[0]] = props
			}
			if err := readProperty(entry, props); err != nil {
				return nil, err
			}
		}
		// Recipient tables and embedded messages are not needed.
	}
	return msg, nil
}

func readStream(entry *mscfb.File) ([]byte, error) {
	buf := make([]byte, entry.Size)
	if _, err := io.ReadFull(entry, buf); err != nil {
		return nil, fmt.Errorf("read stream %s: %w", entry.Name, err)
	}
	return buf, nil
}

// readProperty decodes a __substg1.0_IIIITTTT string stream into props.
// Other property types are ignored.
func readProperty(entry *mscfb.File, props map[uint16]string) error {
	if !strings.HasPrefix(entry.Name, propStreamPrefix) {
		return nil
	}
	code := strings.TrimPrefix(entry.Name, propStreamPrefix)
	if len(code) != 8 {
		return nil
	}
	id, err := strconv.ParseUint(code[:4], 16, 16)
	if err != nil {
		return nil
	}
	kind := strings.ToUpper(code[4:])
	if kind != "001F" && kind != "001E" {
		return nil
	}

	raw, err := readStream(entry)
	if err != nil {
		return err
	}
	text, err := decodeString(raw, kind == "001F")
	if err != nil {
		return fmt.Errorf("decode property %04X: %w", id, err)
	}
	props[uint16(id)] = text
	return nil
}

func decodeString(raw []byte, wide bool) (string, error) {
	var out []byte
	var err error
	if wide {
		out, err = utf16Decoder.NewDecoder().Bytes(raw)
	} else {
		out, err = charmap.Windows1252.NewDecoder().Bytes(raw)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\x00"), nil
}

func parseTransportHeaders(raw string) mail.Header {
	r := bufio.NewReader(strings.NewReader(strings.TrimRight(raw, "\r\n\x00") + "\r\n\r\n"))
	th, err := textproto.ReadHeader(r)
	if err != nil && th.Len() == 0 {
		return mail.Header{}
	}
	return mail.Header{Header: message.Header{Header: th}}
}

// sender builds "Name <email>" from the sender properties. Exchange-internal
// X.500 addresses are dropped so the name can still be resolved later.
func (m *outlookMessage) sender() (string, bool) {
	name := m.first(propSenderName, propSentRepresentName)
	email := ""
	for _, id := range []uint16{propSenderSMTPAddress, propSenderEmail, propSentRepresentEmail} {
		if v := strings.TrimSpace(m.props[id]); v != "" && !strings.HasPrefix(v, "/") {
			email = v
			break
		}
	}
	if name == "" && email == "" {
		return "", false
	}
	return formatSender(name, email), true
}

func (m *outlookMessage) first(ids ...uint16) string {
	for _, id := range ids {
		if v := strings.TrimSpace(m.props[id]); v != "" {
			return v
		}
	}
	return ""
}

func (m *outlookMessage) submitTime() (time.Time, bool) {
	if len(m.fixed) < topLevelPropsHeader {
		return time.Time{}, false
	}
	var delivery time.Time
	for off := topLevelPropsHeader; off+propEntrySize <= len(m.fixed); off += propEntrySize {
		entry := m.fixed[off : off+propEntrySize]
		tag := binary.LittleEndian.Uint32(entry[0:4])
		if tag != tagClientSubmitTime && tag != tagMessageDeliveryTime {
			continue
		}
		ft := binary.LittleEndian.Uint64(entry[8:16])
		if ft <= filetimeEpochDelta {
			continue
		}
		t := time.Unix(0, int64(ft-filetimeEpochDelta)*100).In(time.Local)
		if tag == tagClientSubmitTime {
			return t, true
		}
		delivery = t
	}
	return delivery, !delivery.IsZero()
}

func (m *outlookMessage) attachmentNames() []string {
	keys := make([]string, 0, len(m.attachments))
	for k := range m.attachments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		props := m.attachments[k]
		name := strings.TrimSpace(props[propAttachLongFilename])
		if name == "" {
			name = strings.TrimSpace(props[propAttachShortFilename])
		}
		if name == "" {
			name = "attachment"
		}
		names = append(names, name)
	}
	return names
}
