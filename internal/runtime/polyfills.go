package runtime

// These run inside the bundle next to the modules that use them, so they
// can't refer to "process", "Buffer", or "global" directly: inside the bundle
// those names are bound to the polyfills themselves. The host's values are
// read off the global object instead.

const hostGlobal = `var g = typeof globalThis !== 'undefined' ? globalThis
  : typeof window !== 'undefined' ? window
  : typeof self !== 'undefined' ? self
  : (function () { return this; })() || {};
`

const globalSource = hostGlobal + `module.exports = g;
`

const processSource = hostGlobal + `if (g.process && typeof g.process.nextTick === 'function') {
  module.exports = g.process;
} else {
  var queue = [];
  var draining = false;
  var drain = function () {
    var current = queue;
    queue = [];
    draining = false;
    for (var i = 0; i < current.length; i++) {
      current[i]();
    }
  };
  var noop = function () {};
  module.exports = {
    title: 'browser',
    browser: true,
    env: {},
    argv: [],
    version: '',
    versions: {},
    platform: 'browser',
    nextTick: function (fn) {
      var args = Array.prototype.slice.call(arguments, 1);
      queue.push(function () { fn.apply(null, args); });
      if (!draining) {
        draining = true;
        setTimeout(drain, 0);
      }
    },
    cwd: function () { return '/'; },
    chdir: function () { throw new Error('process.chdir is not supported'); },
    umask: function () { return 0; },
    on: noop,
    once: noop,
    off: noop,
    emit: noop,
    addListener: noop,
    removeListener: noop,
    removeAllListeners: noop,
    listeners: function () { return []; },
    binding: function () { throw new Error('process.binding is not supported'); }
  };
}
`

const bufferSource = hostGlobal + `if (typeof g.Buffer === 'function') {
  module.exports = g.Buffer;
} else {
  var encodeUTF8 = function (text) {
    var bytes = [];
    for (var i = 0; i < text.length; i++) {
      var c = text.charCodeAt(i);
      if (c >= 0xD800 && c <= 0xDBFF && i + 1 < text.length) {
        var d = text.charCodeAt(i + 1);
        if (d >= 0xDC00 && d <= 0xDFFF) {
          c = 0x10000 + ((c - 0xD800) << 10) + (d - 0xDC00);
          i++;
        }
      }
      if (c < 0x80) {
        bytes.push(c);
      } else if (c < 0x800) {
        bytes.push(0xC0 | (c >> 6), 0x80 | (c & 63));
      } else if (c < 0x10000) {
        bytes.push(0xE0 | (c >> 12), 0x80 | ((c >> 6) & 63), 0x80 | (c & 63));
      } else {
        bytes.push(0xF0 | (c >> 18), 0x80 | ((c >> 12) & 63), 0x80 | ((c >> 6) & 63), 0x80 | (c & 63));
      }
    }
    return bytes;
  };

  var decodeUTF8 = function (bytes, start, end) {
    var text = '';
    var i = start;
    while (i < end) {
      var c = bytes[i++];
      if (c >= 0xF0) {
        c = ((c & 7) << 18) | ((bytes[i++] & 63) << 12) | ((bytes[i++] & 63) << 6) | (bytes[i++] & 63);
        c -= 0x10000;
        text += String.fromCharCode(0xD800 + (c >> 10), 0xDC00 + (c & 1023));
        continue;
      }
      if (c >= 0xE0) {
        c = ((c & 15) << 12) | ((bytes[i++] & 63) << 6) | (bytes[i++] & 63);
      } else if (c >= 0xC0) {
        c = ((c & 31) << 6) | (bytes[i++] & 63);
      }
      text += String.fromCharCode(c);
    }
    return text;
  };

  var hex = '0123456789abcdef';

  var toString = function (encoding, start, end) {
    start = start || 0;
    end = end === undefined ? this.length : end;
    if (encoding === 'hex') {
      var out = '';
      for (var i = start; i < end; i++) {
        out += hex.charAt(this[i] >> 4) + hex.charAt(this[i] & 15);
      }
      return out;
    }
    return decodeUTF8(this, start, end);
  };

  var create = function (bytes) {
    var buffer = new Uint8Array(bytes);
    buffer._isBuffer = true;
    buffer.toString = toString;
    return buffer;
  };

  var BufferPolyfill = function (value, encoding) {
    return BufferPolyfill.from(value, encoding);
  };
  BufferPolyfill.from = function (value, encoding) {
    if (typeof value === 'string') {
      if (encoding === 'hex') {
        var bytes = [];
        for (var i = 0; i + 1 < value.length; i += 2) {
          bytes.push(parseInt(value.substr(i, 2), 16));
        }
        return create(bytes);
      }
      return create(encodeUTF8(value));
    }
    return create(value);
  };
  BufferPolyfill.alloc = function (size) {
    return create(size);
  };
  BufferPolyfill.isBuffer = function (value) {
    return Boolean(value && value._isBuffer);
  };
  BufferPolyfill.byteLength = function (value) {
    return typeof value === 'string' ? encodeUTF8(value).length : value.length;
  };
  BufferPolyfill.concat = function (list) {
    var bytes = [];
    for (var i = 0; i < list.length; i++) {
      for (var j = 0; j < list[i].length; j++) {
        bytes.push(list[i][j]);
      }
    }
    return create(bytes);
  };
  module.exports = BufferPolyfill;
}
`
