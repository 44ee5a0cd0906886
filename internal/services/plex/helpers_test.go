// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package plex

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/plexbrr/internal/config"
)

const testToken = "test-token"

// logBuffer collects log output from the client under test
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) count(level string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), `"level":"`+level+`"`)
}

// newTestClient starts a server answering with handler and returns a client bound to it
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *logBuffer, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	logs := &logBuffer{}
	client := NewClient(config.PlexConfig{
		Host:  u.Hostname(),
		Port:  port,
		Token: testToken,
	}, WithLogger(zerolog.New(logs).Level(zerolog.TraceLevel)))

	return client, logs, srv
}

// serveXML answers every request for path with body
func serveXML(t *testing.T, path, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			t.Errorf("unexpected path %q, want %q", r.URL.Path, path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("X-Plex-Token"); got != testToken {
			t.Errorf("unexpected token %q", got)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/xml;charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

// parseElement parses a fragment and returns its root element
func parseElement(t *testing.T, fragment string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(fragment))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

const sessionsXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="5">
  <Video sessionKey="10" ratingKey="100" type="movie" title="Heat" art="/library/metadata/100/art/1" thumb="/library/metadata/100/thumb/1" duration="10260000" viewOffset="5130000">
    <Media videoCodec="h264" audioCodec="dca" audioChannels="6" width="1920" height="1080" duration="999"/>
    <User id="1" title="alice"/>
    <Player platform="Chrome" state="playing"/>
  </Video>
  <Track sessionKey="11" ratingKey="200" type="track" title="Teardrop" parentTitle="Mezzanine" grandparentTitle="Massive Attack" thumb="/library/metadata/200/thumb/1" parentThumb="/library/metadata/199/thumb/1" viewOffset="60000">
    <Media audioCodec="flac" audioChannels="2" duration="330000"/>
    <User id="2" title="bob"/>
    <Player platform="Android" state="paused"/>
  </Track>
  <Video sessionKey="12" ratingKey="300" type="episode" grandparentTitle="The Wire" title="The Target" duration="3600000" viewOffset="900000" art="/library/metadata/298/art/1" thumb="/library/metadata/300/thumb/1">
    <Media videoCodec="hevc" audioCodec="aac" audioChannels="2" width="3840" height="2160"/>
    <User id="3" title="carol"/>
    <Player platform="Roku" state="buffering"/>
    <TranscodeSession audioDecision="copy" audioChannels="2" audioCodec="aac" videoDecision="transcode" videoCodec="h264" width="1280" height="720"/>
  </Video>
  <Track sessionKey="14" ratingKey="201" type="track" title="Angel" parentTitle="Mezzanine" grandparentTitle="Massive Attack">
    <Media audioCodec="mp3" audioChannels="2" duration="380000"/>
    <User id="2" title="bob"/>
    <Player platform="iOS" state="playing"/>
    <TranscodeSession audioDecision="transcode" audioChannels="2" audioCodec="aac" duration="200000" viewOffset="150000"/>
  </Track>
  <Video sessionKey="13" ratingKey="400" type="clip" title="Trailer">
    <Media videoCodec="h264"/>
    <User id="4" title="dave"/>
    <Player platform="iOS" state="playing"/>
  </Video>
</MediaContainer>`

const movieMetadataXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1" allowSync="1" identifier="com.plexapp.plugins.library">
  <Video ratingKey="100" key="/library/metadata/100" studio="Warner Bros." type="movie" title="Heat" contentRating="R" summary="A group of professional bank robbers." rating="8.2" year="1995" thumb="/library/metadata/100/thumb/1" art="/library/metadata/100/art/1" duration="10260000" originallyAvailableAt="1995-12-15">
    <Media id="1" duration="10260000" videoCodec="h264"/>
    <Genre id="1" tag="Crime"/>
    <Genre id="2" tag="Thriller"/>
    <Genre id="3" tag="Drama"/>
    <Writer id="4" tag="Michael Mann"/>
    <Director id="5" tag="Michael Mann"/>
    <Role id="6" tag="Al Pacino" role="Vincent Hanna"/>
    <Role id="7" tag="Robert De Niro" role="Neil McCauley"/>
  </Video>
</MediaContainer>`

const showMetadataXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
  <Directory ratingKey="500" type="show" title="The Wire" studio="HBO" contentRating="TV-MA" summary="Baltimore." rating="9.3" year="2002" duration="3600000" thumb="/library/metadata/500/thumb/1" art="/library/metadata/500/art/1" originallyAvailableAt="2002-06-02">
    <Genre tag="Crime"/>
    <Genre tag="Drama"/>
    <Role tag="Dominic West"/>
  </Directory>
</MediaContainer>`

const episodeMetadataXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
  <Video ratingKey="300" type="episode" title="The Target" grandparentTitle="The Wire" parentIndex="1" index="1" contentRating="TV-MA" summary="Pilot." year="2002" duration="3719999" thumb="/library/metadata/300/thumb/1" parentThumb="/library/metadata/299/thumb/1" art="/library/metadata/500/art/1" originallyAvailableAt="2002-06-02" studio="HBO" rating="8.0">
    <Director tag="Clark Johnson"/>
    <Writer tag="David Simon"/>
    <Writer tag="Ed Burns"/>
  </Video>
</MediaContainer>`

const seasonMetadataXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
  <Directory ratingKey="299" type="season" parentTitle="The Wire" index="1" title="Season 1" thumb="/library/metadata/299/thumb/1" art="/library/metadata/500/art/1">
    <Genre tag="Crime"/>
  </Directory>
</MediaContainer>`
