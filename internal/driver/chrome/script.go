package chrome

// installScript adds the window.__uispec helper to the page. It is
// idempotent and re-run before every snapshot, since a navigation inside
// the app replaces the window.
//
// Every live element gets a stable numeric ref the first time a snapshot
// sees it. The snapshot itself is a deep clone of the document annotated
// with refs, visibility and obstruction, so the live DOM is never touched.
// A MutationObserver counts DOM changes into the snapshot generation.
const installScript = `(() => {
  if (window.__uispec) return;
  const ids = new WeakMap();
  const refs = new Map();
  const state = { next: 0, gen: 0 };
  new MutationObserver(() => { state.gen++; }).observe(document, {
    subtree: true, childList: true, attributes: true, characterData: true,
  });

  const refOf = (el) => {
    let id = ids.get(el);
    if (id === undefined) {
      id = state.next++;
      ids.set(el, id);
      refs.set(id, el);
    }
    return id;
  };
  const visible = (el) => {
    const style = getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden') return false;
    const r = el.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
  };
  const obstructed = (el) => {
    const r = el.getBoundingClientRect();
    const x = r.left + r.width / 2;
    const y = r.top + r.height / 2;
    if (x < 0 || y < 0 || x > innerWidth || y > innerHeight) return false;
    const top = document.elementFromPoint(x, y);
    return !!top && top !== el && !el.contains(top);
  };

  window.__uispec = {
    snapshot() {
      for (const [id, el] of refs) {
        if (!el.isConnected) refs.delete(id);
      }
      const root = document.documentElement;
      const live = [root, ...root.querySelectorAll('*')];
      const clone = root.cloneNode(true);
      const copies = [clone, ...clone.querySelectorAll('*')];
      live.forEach((el, i) => {
        const c = copies[i];
        const v = visible(el);
        c.setAttribute('data-uispec-ref', String(refOf(el)));
        c.setAttribute('data-uispec-visible', String(v));
        c.setAttribute('data-uispec-obstructed', String(v && obstructed(el)));
        if ((el.tagName === 'INPUT' || el.tagName === 'TEXTAREA') && typeof el.value === 'string') {
          c.setAttribute('value', el.value);
        }
      });
      return { gen: state.gen, html: clone.outerHTML };
    },
    element(ref) {
      const el = refs.get(ref);
      return el && el.isConnected ? el : null;
    },
    mouse(ref, types) {
      const el = this.element(ref);
      if (!el) return false;
      const r = el.getBoundingClientRect();
      const init = {
        bubbles: true, cancelable: true, view: window, button: 0,
        clientX: r.left + r.width / 2, clientY: r.top + r.height / 2,
      };
      for (const type of types) el.dispatchEvent(new MouseEvent(type, init));
      return true;
    },
    focus(ref) {
      const el = this.element(ref);
      if (!el) return false;
      el.focus();
      return true;
    },
  };
})()`

const snapshotScript = installScript + `; window.__uispec.snapshot()`
