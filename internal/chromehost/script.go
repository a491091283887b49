package chromehost

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"canvaszoom/internal/hotkeys"
	"canvaszoom/internal/host"
)

// bindingName is the runtime binding the page calls with every event.
const bindingName = "canvaszoomEmit"

// Clicks on these controls replace or switch the edited image. Selectors
// are embedded in single-quoted script strings.
const (
	removeImageSelector = `button[aria-label="Remove Image"]`
	fileInputSelector   = `input[type="file"][accept="image/*"]`
	tabNavSelector      = ".tab-nav"
)

// pageScript installs window.__canvaszoom before any page script runs. It
// keeps a registry of resolved elements keyed like the Go side, forwards
// input to the binding and suppresses the browser default for gestures the
// engine consumes.
const pageScript = `(() => {
  if (window.__canvaszoom) return;
  const cz = { els: {}, watched: {}, cfg: { zoom: 'Alt', adjust: 'Ctrl', codes: [] }, active: null };
  const mods = (e) => ({ ctrl: !!e.ctrlKey, alt: !!e.altKey, shift: !!e.shiftKey, meta: !!e.metaKey });
  const textInput = (t) => !!t && (t.tagName === 'TEXTAREA' || (t.tagName === 'INPUT' && t.type === 'text') || !!t.isContentEditable);
  const held = (b, e) => (b === 'Ctrl' && e.ctrlKey) || (b === 'Alt' && e.altKey) || (b === 'Shift' && e.shiftKey);
  const encode = (kind, e) => ({
    kind, mods: mods(e),
    clientX: e.clientX || 0, clientY: e.clientY || 0,
    offsetX: e.offsetX || 0, offsetY: e.offsetY || 0,
    movementX: e.movementX || 0, movementY: e.movementY || 0,
    deltaY: e.deltaY || 0, code: e.code || '', key: e.key || '',
    textInput: textInput(e.target),
  });
  const emit = (target, event) => {
    if (typeof window.` + bindingName + ` === 'function') {
      window.` + bindingName + `(JSON.stringify({ target, event }));
    }
  };
  const mutation = (kind, extra) => ({ kind: 'mutation', mods: {}, mutation: Object.assign({ kind }, extra || {}) });
  const within = (t, selector) => !!t && typeof t.closest === 'function' && !!t.closest(selector);

  cz.configure = (cfg) => { cz.cfg = cfg; return true; };
  cz.viewport = () => ({
    innerWidth: window.innerWidth, innerHeight: window.innerHeight,
    clientWidth: document.documentElement.clientWidth,
  });
  cz.resolve = (key, selector) => {
    const el = document.querySelector(selector);
    if (!el) { delete cz.els[key]; return false; }
    cz.els[key] = el;
    return true;
  };
  cz.relate = (key, owner, rel) => {
    const el = cz.els[owner];
    if (!el) return '';
    let found = null;
    if (rel === 'component') found = el.parentElement && el.parentElement.closest('[id^="component-"]');
    else if (rel === 'parent') found = el.parentElement;
    else if (rel === 'surface') found = el.querySelector('canvas[key="interface"]');
    else if (rel === 'brush') found = el.querySelector("input[aria-label='Brush radius']") || el.querySelector('button[aria-label="Use brush"]');
    if (!found) { delete cz.els[key]; return ''; }
    cz.els[key] = found;
    return found.id ? '#' + found.id : found.tagName.toLowerCase();
  };
  cz.style = (key, prop) => {
    const el = cz.els[key];
    return el ? el.style.getPropertyValue(prop) : '';
  };
  cz.setStyle = (key, prop, value) => {
    const el = cz.els[key];
    if (!el) return false;
    if (value === '') el.style.removeProperty(prop); else el.style.setProperty(prop, value);
    return true;
  };
  cz.box = (key) => {
    const el = cz.els[key];
    if (!el) return null;
    const r = el.getBoundingClientRect();
    return {
      rect: { x: r.x, y: r.y, width: r.width, height: r.height },
      offsetWidth: el.offsetWidth, offsetHeight: el.offsetHeight,
      clientWidth: el.clientWidth, clientHeight: el.clientHeight,
      scrollWidth: el.scrollWidth,
    };
  };
  cz.brush = (key, op, value) => {
    const el = cz.els[key];
    if (!el) return 0;
    if (op === 'activate') { el.click(); return 0; }
    if (op === 'max') return Number(el.max) || 0;
    if (op === 'set') {
      el.value = String(value);
      el.dispatchEvent(new Event('input', { bubbles: true }));
      el.dispatchEvent(new Event('change', { bubbles: true }));
    }
    return Number(el.value) || 0;
  };
  cz.watch = (key) => {
    const el = cz.els[key];
    if (!el || cz.watched[key] === el) return !!el;
    cz.watched[key] = el;
    el.addEventListener('wheel', (e) => {
      if (held(cz.cfg.zoom, e) || held(cz.cfg.adjust, e)) e.preventDefault();
      emit(key, encode('wheel', e));
    }, { passive: false });
    el.addEventListener('pointermove', (e) => { cz.active = key; emit(key, encode('pointermove', e)); });
    el.addEventListener('pointerleave', (e) => { cz.active = null; emit(key, encode('pointerleave', e)); });
    el.addEventListener('click', (e) => emit(key, encode('click', e)));
    el.addEventListener('click', (e) => {
      if (within(e.target, '` + removeImageSelector + `') || within(e.target, '` + fileInputSelector + `')) {
        emit(key, mutation('image-replaced'));
      }
    }, true);
    new MutationObserver((records) => {
      for (const r of records) {
        emit(key, mutation('attribute', { targetTag: r.target.tagName.toLowerCase(), attribute: r.attributeName }));
      }
    }).observe(el, { attributes: true, subtree: true, attributeFilter: ['style'] });
    return true;
  };

  document.addEventListener('keydown', (e) => {
    if (cz.active && !textInput(e.target) &&
        (cz.cfg.codes.includes(e.code) || held(cz.cfg.zoom, e) || held(cz.cfg.adjust, e))) {
      e.preventDefault();
    }
    emit('', encode('keydown', e));
  });
  document.addEventListener('keyup', (e) => emit('', encode('keyup', e)));
  document.addEventListener('pointermove', (e) => emit('', encode('pointermove', e)));
  window.addEventListener('blur', () => emit('', { kind: 'blur', mods: {} }));
  document.addEventListener('click', (e) => {
    if (within(e.target, '` + tabNavSelector + `')) emit('', mutation('tab-switched'));
  }, true);
  window.addEventListener('resize', () => emit('', mutation('resized')));
  window.__canvaszoom = cz;
})();`

// pageConfig is what the page needs to decide preventDefault locally.
type pageConfig struct {
	Zoom   string   `json:"zoom"`
	Adjust string   `json:"adjust"`
	Codes  []string `json:"codes"`
}

func newPageConfig(cfg hotkeys.Config) pageConfig {
	pc := pageConfig{
		Zoom:   cfg.Binding(hotkeys.ActionZoom).Normalized(),
		Adjust: cfg.Binding(hotkeys.ActionAdjust).Normalized(),
		Codes:  []string{},
	}
	for _, action := range hotkeys.Actions {
		if b := cfg.Binding(action); b.Kind() == hotkeys.KindLetter {
			pc.Codes = append(pc.Codes, b.Normalized())
		}
	}
	return pc
}

// call renders a call of a registry function with JSON encoded arguments.
func call(fn string, args ...any) (string, error) {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("chromehost: encode argument of %s: %w", fn, err)
		}
		parts = append(parts, string(data))
	}
	return "window.__canvaszoom." + fn + "(" + strings.Join(parts, ", ") + ")", nil
}

// payload is one event reported through the binding.
type payload struct {
	Target string     `json:"target"`
	Event  host.Event `json:"event"`
}

func decodePayload(raw string) (payload, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return payload{}, fmt.Errorf("chromehost: decode event: %w", err)
	}
	if p.Event.Kind == "" {
		return payload{}, errors.New("chromehost: event without kind")
	}
	return p, nil
}
