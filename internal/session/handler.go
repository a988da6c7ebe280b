package session

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/pagebeat-io/pagebeat/internal/core/errors"
)

// CreateCollectorHandler handles POST /create-collector and returns the
// new collector id as a JSON string, matching what stats.js expects.
func (s *Service) CreateCollectorHandler(c *gin.Context) {
	collector, err := s.createCollector(
		c.Request.Context(),
		c.ClientIP(),
		c.GetHeader("Origin"),
		c.GetHeader("User-Agent"),
	)
	if err != nil {
		slog.Error("Failed to create collector", "client_ip", c.ClientIP(), "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to create collector",
		})
		return
	}

	c.JSON(http.StatusOK, collector.ID)
}

// ServeScriptHandler handles GET /stats.js: it creates a collector for
// the requesting page load and serves the tracking script bound to it.
func (s *Service) ServeScriptHandler(c *gin.Context) {
	collector, err := s.createCollector(
		c.Request.Context(),
		c.ClientIP(),
		c.GetHeader("Origin"),
		c.GetHeader("User-Agent"),
	)
	if err != nil {
		slog.Error("Failed to create collector for script", "client_ip", c.ClientIP(), "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to serve tracking script",
		})
		return
	}

	c.Header("Cache-Control", "public, max-age=1800")
	c.Data(http.StatusOK, "application/javascript", []byte(renderScript(collector.ID, s.appURL)))
}

// renderScript binds the tracking script to one collector id. The script
// records an enter event on load, page visits through the history API,
// outbound link leaves and an exit event on unload.
func renderScript(collectorID, appURL string) string {
	return fmt.Sprintf(trackingScript, collectorID, appURL)
}

const trackingScript = `"use strict";
(function() {
    var collectorId = %q;
    var appUrl = %q;

    function init() {
        document.addEventListener('click', function(event) {
            if (event.target.tagName === 'A') {
                var target = event.target.getAttribute('target');
                var href = event.target.getAttribute('href');

                if (target === '_blank') {
                    stats_collect('leave', href);
                }
            }
        });

        window.addEventListener("beforeunload", function(event) {
            stats_collect('exit');
        });

        function wrapHistoryMethod(method) {
            var original = history[method];
            history[method] = function(state, title, url) {
                var fullUrl = new URL(url, window.location.origin).href;
                original.apply(this, arguments);
                stats_collect('visit', fullUrl);
            };
        }

        wrapHistoryMethod('pushState');
        wrapHistoryMethod('replaceState');

        window.addEventListener('popstate', function(event) {
            stats_collect('visit', location.href);
        });
    }

    async function send(type, url_override, referrer) {
        var url = new URL(appUrl + "/collect");

        url.searchParams.set('collector_id', collectorId);
        url.searchParams.set('name', type || "pageview");
        url.searchParams.set('url', url_override || window.location.href);
        url.searchParams.set('referrer', referrer || document.referrer);

        fetch(url).catch(function() {});
    }

    async function stats_collect(type, url) {
        await send(type, url);
    }

    window.stats_collect = stats_collect;
    stats_collect('enter');

    window.addEventListener('load', function() {
        init();
    });
})();
`
